package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/container"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

// Seeds a demo account through the same service the API uses, against the
// configured STORE_DRIVER. Mail is always disabled here.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.MailSendEnabled = false
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build application")
	}
	defer c.Close()

	in := application.RegisterInput{
		Name:     "demoUser",
		Email:    "demo@example.com",
		Password: "password123",
	}
	res, err := c.Auth.Register(ctx, in)
	if errors.Is(err, application.ErrEmailTaken) {
		logger.WithField("email", in.Email).Info("demo account already exists")
		return
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to seed account")
	}
	logger.WithFields(logrus.Fields{
		"id":       res.Account.ID,
		"email":    in.Email,
		"password": in.Password,
	}).Info("seeded account")
}
