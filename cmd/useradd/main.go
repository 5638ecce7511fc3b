// useradd создаёт пользователя с паролем, например первого учителя или администратора.
//
//	useradd -email teacher@example.com -password secret123 -first Анна -last Петрова -role teacher
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/app"
	"github.com/Freeeeeet/interview_scheduler/internal/config"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "email for login")
	password := flag.String("password", "", "password, at least 8 characters")
	firstName := flag.String("first", "", "first name")
	lastName := flag.String("last", "", "last name")
	role := flag.String("role", string(model.RoleCandidate), "admin, teacher, candidate or student")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	migrator, err := app.NewMigrator(db, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	users := service.NewUserService(repository.NewStore(pool), nil, nil, "", logger)

	user, err := users.RegisterUser(ctx, *email, *password, *firstName, *lastName, model.Role(*role))
	if err != nil {
		logger.Fatal("Failed to create user", zap.Error(err))
	}

	logger.Info("✅ User created",
		zap.Int64("id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)),
	)
}
