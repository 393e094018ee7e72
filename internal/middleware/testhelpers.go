package middleware

import (
	"context"

	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/request"
)

// SetUserInContext sets the user in ctx the way Auth does. Exported so
// handler tests can skip token verification.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return request.WithUser(ctx, user)
}
