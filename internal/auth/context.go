package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/visadesk/internal/domain"
)

type contextKey string

const organizationIDKey contextKey = "organizationID"

// ContextWithOrganizationID returns a new context that carries the tenant scope of the request.
func ContextWithOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationIDFromContext retrieves the tenant scope from the context, if any.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(organizationIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireOrganizationID returns the tenant scope or ErrOrganizationScope when
// the request carries none.
func RequireOrganizationID(ctx context.Context) (uuid.UUID, error) {
	id, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: no organization in request", domain.ErrOrganizationScope)
	}
	return id, nil
}

// EnforceOrganizationScope ensures the provided organization matches the scope when present.
func EnforceOrganizationScope(ctx context.Context, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return fmt.Errorf("%w: organizationId is required", domain.ErrValidation)
	}
	scopedID, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != organizationID {
		return fmt.Errorf("%w: organizationId %s", domain.ErrOrganizationScope, organizationID)
	}
	return nil
}
