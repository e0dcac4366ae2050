// Package token issues and validates the HS256 bearer tokens that carry a
// caller's ledger identity: the subject plus the role and organization
// attributes access control reads.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"credledger/internal/access"
	"credledger/internal/ledger"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultIssuer is the iss claim of tokens minted by this service.
const DefaultIssuer = "credledger"

// DefaultTTL is the lifetime of issued tokens.
const DefaultTTL = time.Hour

// Claims are the JWT claims of a caller token.
type Claims struct {
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts verified claims into a ledger caller.
func (c *Claims) Caller() ledger.Caller {
	return ledger.NewCaller(c.Subject, c.Role, c.Organization)
}

// Service signs and verifies caller tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer overrides DefaultIssuer.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewService(signingKey string, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     DefaultIssuer,
		ttl:        DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue mints a token for subject. The role must be one access control knows.
func (s *Service) Issue(ctx context.Context, subject, role, organization string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if access.ParseRole(role) == access.RoleUnknown {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role "+role)
	}

	now := requestcontext.Now(ctx)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:         access.ParseRole(role).String(),
		Organization: strings.TrimSpace(organization),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry. Every failure is
// unauthorized.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}
