package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// RoleOperator is the only role that may settle withdrawals.
const RoleOperator = "operator"

const tokenTTL = 24 * time.Hour

var (
	// ErrDuplicateEmail is returned when creating an operator with an email that already exists.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoSecret           = errors.New("jwt secret not configured")
)

type Operator struct {
	ID    uuid.UUID
	Email string
}

// OperatorStore is the persistence the auth service needs.
type OperatorStore interface {
	Create(ctx context.Context, email, passwordHash string) (*Operator, error)
	GetByEmail(ctx context.Context, email string) (*Operator, string, error)
}

type Service interface {
	CreateOperator(ctx context.Context, email, password string) (*Operator, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	repo   OperatorStore
	secret []byte
	now    func() time.Time
}

// NewService returns the operator auth service. An empty secret disables
// login and rejects every token.
func NewService(repo OperatorStore, secret string) *service {
	return &service{repo: repo, secret: []byte(secret), now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) CreateOperator(ctx context.Context, email, password string) (*Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	op, err := s.repo.Create(ctx, email, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return op, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	op, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(op.ID, RoleOperator)
}

func (s *service) issueToken(id uuid.UUID, role string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	if len(s.secret) == 0 {
		return uuid.Nil, "", ErrNoSecret
	}
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
