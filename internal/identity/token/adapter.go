package token

import (
	"context"

	"credledger/internal/ledger"
	"credledger/pkg/platform/middleware/auth"
)

// MiddlewareAdapter lets the auth middleware validate tokens with a Service.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*auth.Identity, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{
		Subject:      claims.Subject,
		Role:         claims.Role,
		Organization: claims.Organization,
	}, nil
}

// CallerFrom returns the ledger caller authenticated for this request.
func CallerFrom(ctx context.Context) (ledger.Caller, bool) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return ledger.Caller{}, false
	}
	return ledger.NewCaller(id.Subject, id.Role, id.Organization), true
}
