package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"guildhall/internal/domain"
	"guildhall/internal/repo"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so login failures do not reveal which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles account registration and token issuance.
type Service struct {
	Repo      repo.Repo
	JWTSecret string
	TokenTTL  time.Duration
	Now       func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 30 * time.Minute
}

// RegisterOptions are parameters for creating an account.
type RegisterOptions struct {
	Name     string
	Email    string
	Title    string
	PhotoURL string
	Password string
	Role     domain.Role
}

func (s Service) Register(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	if strings.TrimSpace(opts.Email) == "" {
		return domain.User{}, errors.New("email is required")
	}
	if opts.Password == "" {
		return domain.User{}, errors.New("password is required")
	}
	if opts.Role == "" {
		opts.Role = domain.RoleMember
	}
	hash, err := HashPassword(opts.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now().UTC().Format(time.RFC3339)
	u := domain.User{
		ID:           uuid.New().String(),
		Name:         opts.Name,
		Email:        strings.ToLower(strings.TrimSpace(opts.Email)),
		PhotoURL:     opts.PhotoURL,
		Title:        opts.Title,
		PasswordHash: hash,
		Role:         opts.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate verifies an email/password pair against the store.
func (s Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role,omitempty"`
}

// IssueToken mints a signed HS256 token for the user. The subject is the
// user's email; the role claim is advisory only, access checks always read
// the live user row.
func (s Service) IssueToken(u domain.User) (string, error) {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
		Role: u.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.JWTSecret))
}

// ParseToken validates a token and resolves its subject to a live user.
func (s Service) ParseToken(ctx context.Context, token string) (domain.User, error) {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return domain.User{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.User{}, errors.New("invalid token")
	}
	u, err := s.Repo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, fmt.Errorf("token subject %s: unknown user", claims.Subject)
		}
		return domain.User{}, err
	}
	return u, nil
}

// HashPassword produces a bcrypt hash at the default cost.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
