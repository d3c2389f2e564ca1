// Package container builds the process-wide object graph from config and
// tears it down again on shutdown.
package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/application"
	repo "github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-auth-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
	tpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

type Container struct {
	Cfg    *config.Config
	Logger *logrus.Logger

	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	RabbitPub *helpers.RabbitPublisher

	Accounts repo.AccountRepository
	Notifier application.Notifier
	JWT      *helpers.JWTManager
	Cookies  *helpers.Manager
	Auth     *application.AuthService
}

// New connects the configured store and notification sink and builds the
// auth service on top of them. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (_ *Container, err error) {
	c := &Container{Cfg: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if c.Accounts, err = c.openStore(ctx); err != nil {
		return nil, err
	}
	if c.Notifier, err = c.openNotifier(); err != nil {
		return nil, err
	}

	c.JWT = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	c.Cookies = helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure, cfg.IsProduction(), cfg.CookieCrossSite)
	c.Auth = application.NewAuthService(
		c.Accounts,
		helpers.NewBcryptHasher(0),
		c.JWT,
		c.Notifier,
		logger,
		application.WithOTPTTL(cfg.OTPTTL),
	)
	return c, nil
}

func (c *Container) openStore(ctx context.Context) (repo.AccountRepository, error) {
	cfg := c.Cfg
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, err
		}
		c.PGPool = pool
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
			return nil, oops.With("operation", "migrate").Wrap(err)
		}
		return pginfra.NewAccountRepository(pool), nil

	case config.StoreRedis:
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return nil, oops.With("operation", "redis ping").With("addr", cfg.RedisAddr).Wrap(err)
		}
		return redisstore.NewAccountRepository(c.Redis), nil

	case config.StoreMemory:
		c.Logger.Warn("using in-memory account store; data is lost on restart")
		return memory.NewAccountRepository(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func (c *Container) openNotifier() (application.Notifier, error) {
	cfg := c.Cfg
	switch {
	case !cfg.MailSendEnabled:
		return mailer.DisabledNotifier{Logger: c.Logger}, nil

	case cfg.RabbitMQURL != "":
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, oops.With("operation", "rabbitmq connect").With("queue", cfg.RabbitMQEmailQueue).Wrap(err)
		}
		c.RabbitPub = pub
		c.Logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("emails are queued for the worker")
		return mailer.NewQueueNotifier(pub), nil

	case cfg.MailgunConfigured():
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailSender)
		return mailer.NewDirectNotifier(mg, tpl.BrandingFromConfig(cfg)), nil
	}
	c.Logger.Warn("mail enabled but neither RABBITMQ_URL nor Mailgun credentials are set; emails are dropped")
	return mailer.DisabledNotifier{Logger: c.Logger}, nil
}

// Close drains in-flight notifications, then releases resources in reverse
// order of construction. Safe on a partially built container.
func (c *Container) Close() {
	if c.Auth != nil {
		c.Auth.Wait()
	}
	if c.RabbitPub != nil {
		c.RabbitPub.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}
