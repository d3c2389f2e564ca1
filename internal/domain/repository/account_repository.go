package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// AccountRepository defines the credential store used by the auth service.
// Implementations return ErrNotFound for missing accounts and ErrDuplicateEmail
// when Create hits an existing email.
type AccountRepository interface {
	// Create assigns ID, CreatedAt and UpdatedAt on success.
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	// Update replaces the stored document for a.ID.
	Update(ctx context.Context, a *entity.Account) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
