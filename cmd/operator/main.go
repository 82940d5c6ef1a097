// Command operator creates an account that may log in to the admin API
// and settle withdrawal requests.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/dianedanzo/bear-app/internal/auth"
	"github.com/dianedanzo/bear-app/internal/config"
	"github.com/dianedanzo/bear-app/internal/database"
)

func main() {
	var (
		email    = flag.String("email", "", "Operator email (required)")
		password = flag.String("password", "", "Operator password; defaults to $OPERATOR_PASSWORD")
	)
	flag.Parse()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	pw := *password
	if pw == "" {
		pw = os.Getenv("OPERATOR_PASSWORD")
	}
	if *email == "" || len(pw) < 8 {
		slog.Error("usage: operator -email EMAIL [-password PASSWORD]; password must be at least 8 characters")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	op, err := svc.CreateOperator(ctx, *email, pw)
	if errors.Is(err, auth.ErrDuplicateEmail) {
		slog.Error("Operator already exists", "email", *email)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Create operator failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Operator created", "id", op.ID, "email", op.Email)
}
