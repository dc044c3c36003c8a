package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed by value into components.
type Config struct {
	Listen          string   `yaml:"listen"`
	Workspace       string   `yaml:"workspace"`
	JWTSecret       string   `yaml:"jwt_secret"`
	TokenTTLMinutes int      `yaml:"token_ttl_minutes"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RateLimit       struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Default returns the baseline configuration before file and env overlays.
func Default() Config {
	var c Config
	c.Listen = "127.0.0.1:8080"
	c.Workspace = "."
	c.TokenTTLMinutes = 30
	c.AllowedOrigins = []string{"*"}
	c.RateLimit.RPS = 20
	c.RateLimit.Burst = 40
	return c
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "guildhall.yml")
}

// Load builds the config: defaults, then the optional guildhall.yml in the
// workspace, then GUILDHALL_* environment variables.
func Load(workspace string) (Config, error) {
	c := Default()
	if workspace != "" {
		c.Workspace = workspace
	}
	data, err := os.ReadFile(Path(c.Workspace))
	if err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("invalid config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return c, err
	}

	v := viper.New()
	v.SetEnvPrefix("GUILDHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if s := v.GetString("listen"); s != "" {
		c.Listen = s
	}
	if s := v.GetString("jwt_secret"); s != "" {
		c.JWTSecret = s
	}
	if n := v.GetInt("token_ttl_minutes"); n > 0 {
		c.TokenTTLMinutes = n
	}
	if s := v.GetString("allowed_origins"); s != "" {
		c.AllowedOrigins = strings.Split(s, ",")
	}
	if f := v.GetFloat64("rate_rps"); f > 0 {
		c.RateLimit.RPS = f
	}
	if n := v.GetInt("rate_burst"); n > 0 {
		c.RateLimit.Burst = n
	}
	return c, nil
}

// ValidateForServe checks settings the HTTP server cannot run without.
func (c Config) ValidateForServe() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret is required; set GUILDHALL_JWT_SECRET or jwt_secret in %s", Path(c.Workspace))
	}
	return nil
}

// TokenTTL returns the session token lifetime.
func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
