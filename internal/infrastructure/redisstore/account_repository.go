// Package redisstore keeps accounts as JSON documents in Redis.
//
// Layout:
//
//	account:id:<id>       -> JSON-encoded entity.Account
//	account:email:<email> -> <id>
//
// The email index is claimed with SETNX before the document is written, which
// is what enforces one account per email.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

func keyAccount(id string) string { return "account:id:" + id }
func keyAccountEmail(email string) string { return "account:email:" + email }

type AccountRepository struct {
	rdb *redis.Client
}

func NewAccountRepository(rdb *redis.Client) *AccountRepository {
	return &AccountRepository{rdb: rdb}
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	id := uuid.NewString()
	claimed, err := r.rdb.SetNX(ctx, keyAccountEmail(a.Email), id, 0).Result()
	if err != nil {
		return oops.With("operation", "claim email index").With("email", a.Email).Wrap(err)
	}
	if !claimed {
		return repository.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := helpers.RedisSetJSON(ctx, r.rdb, keyAccount(id), a, 0); err != nil {
		// release the email so a retry is possible
		_ = helpers.RedisDel(ctx, r.rdb, keyAccountEmail(a.Email))
		a.ID = ""
		return oops.With("operation", "write account").With("id", id).Wrap(err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	var a entity.Account
	found, err := helpers.RedisGetJSON(ctx, r.rdb, keyAccount(id), &a)
	if err != nil {
		return nil, oops.With("operation", "read account").With("id", id).Wrap(err)
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	id, err := r.rdb.Get(ctx, keyAccountEmail(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "read email index").With("email", email).Wrap(err)
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) Update(ctx context.Context, a *entity.Account) error {
	n, err := r.rdb.Exists(ctx, keyAccount(a.ID)).Result()
	if err != nil {
		return oops.With("operation", "check account").With("id", a.ID).Wrap(err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	if err := helpers.RedisSetJSON(ctx, r.rdb, keyAccount(a.ID), a, 0); err != nil {
		return oops.With("operation", "write account").With("id", a.ID).Wrap(err)
	}
	return nil
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
