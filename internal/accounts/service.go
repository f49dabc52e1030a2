// internal/accounts/service.go
package accounts

import (
	"context"
)

// Service defines the interface for console logins and the access log.
type Service interface {
	Register(ctx context.Context, a Account, password string) (*Account, error)
	Authenticate(ctx context.Context, login, password string) (*Account, string, error)
	Logout(ctx context.Context, entryID string) error
	Update(ctx context.Context, id string, a Account) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	AccessLog(ctx context.Context) ([]AccessEntry, error)
}
