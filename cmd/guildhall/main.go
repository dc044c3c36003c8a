package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"guildhall/internal/config"
	"guildhall/internal/db"
	"guildhall/internal/domain"
	"guildhall/internal/engine"
	"guildhall/internal/identity"
	"guildhall/internal/migrate"
	"guildhall/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "guildhall",
	Short: "Guildhall CLI",
	Long: `Guildhall coordinates volunteer missions: users hold skills at a
proficiency, managers propose missions with skill-gated role slots, and slots
are filled by drafting, pitching, or invite-and-respond. Every workflow step
notifies the affected user.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("GUILDHALL")
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(missionCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Listen = addr
			}
			if err := cfg.ValidateForServe(); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: cfg.Workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn)
			ident := identity.Service{
				Repo:      e.Repo,
				JWTSecret: cfg.JWTSecret,
				TokenTTL:  cfg.TokenTTL(),
			}
			handler, err := server.New(server.Config{
				Engine:         e,
				Identity:       ident,
				BasePath:       basePath,
				AllowedOrigins: cfg.AllowedOrigins,
				RateRPS:        cfg.RateLimit.RPS,
				RateBurst:      cfg.RateLimit.Burst,
				Logger:         logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Listen, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info().Str("addr", cfg.Listen).Str("base_path", basePath).Msg("serving Guildhall API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrations up to date")
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(userCreateCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userHashPasswordCmd())
	return user
}

func userCreateCmd() *cobra.Command {
	var name, email, title, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password required")
			}
			parsedRole, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ident := identity.Service{Repo: e.Repo}
				u, err := ident.Register(ctx, identity.RegisterOptions{
					Name:     name,
					Email:    email,
					Title:    title,
					Password: password,
					Role:     parsedRole,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable([]domain.User{u}, userRows)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "account role (Member, Manager, Admin)")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.Repo.ListUsers(ctx, 0, 0)
				if err != nil {
					return err
				}
				return printJSONOrTable(users, userRows)
			})
		},
	}
}

func userHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := identity.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func skillCmd() *cobra.Command {
	skill := &cobra.Command{Use: "skill", Short: "Manage the skill catalog"}
	skill.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				// CLI access is local and trusted; act as an admin.
				admin := domain.User{Role: domain.RoleAdmin}
				s, err := e.CreateSkill(ctx, admin, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable([]domain.Skill{s}, skillRows)
			})
		},
	})
	skill.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				skills, err := e.Repo.ListSkills(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(skills, skillRows)
			})
		},
	})
	return skill
}

func missionCmd() *cobra.Command {
	mission := &cobra.Command{Use: "mission", Short: "Inspect missions"}
	mission.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				missions, err := e.Repo.ListMissions(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(missions, missionRows)
			})
		},
	})
	return mission
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn))
}

type rowsFunc[T any] func(items []T) (table.Row, []table.Row)

func printJSONOrTable[T any](items []T, rows rowsFunc[T]) error {
	if viper.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	header, body := rows(items)
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.AppendRows(body)
	t.Render()
	return nil
}

func userRows(users []domain.User) (table.Row, []table.Row) {
	rows := make([]table.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, table.Row{u.ID, u.Name, u.Email, u.Role, u.Title})
	}
	return table.Row{"ID", "Name", "Email", "Role", "Title"}, rows
}

func skillRows(skills []domain.Skill) (table.Row, []table.Row) {
	rows := make([]table.Row, 0, len(skills))
	for _, s := range skills {
		rows = append(rows, table.Row{s.ID, s.Name})
	}
	return table.Row{"ID", "Name"}, rows
}

func missionRows(missions []domain.Mission) (table.Row, []table.Row) {
	rows := make([]table.Row, 0, len(missions))
	for _, m := range missions {
		rows = append(rows, table.Row{m.ID, m.Title, m.Status, m.LeadUserID})
	}
	return table.Row{"ID", "Title", "Status", "Lead"}, rows
}
