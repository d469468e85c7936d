package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/config"
	"github.com/noah-isme/student-portal-api/pkg/database"
	"github.com/noah-isme/student-portal-api/pkg/logger"
)

type adminCreator interface {
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
}

func main() {
	var (
		username string
		password string
		migrate  bool
		timeout  time.Duration
	)

	flag.StringVar(&username, "username", "admin", "Admin username")
	flag.StringVar(&password, "password", "", "Admin password (required)")
	flag.BoolVar(&migrate, "migrate", true, "Create missing tables before seeding")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	created, err := seedAdmin(ctx, repository.NewUserRepository(db), username, password)
	if err != nil {
		logr.Fatal("failed to seed admin", zap.Error(err))
	}
	if created {
		logr.Info("admin created", zap.String("username", username))
		return
	}
	logr.Info("admin already exists, nothing to do", zap.String("username", username))
}

// seedAdmin writes one admin credential and reports whether it was new.
func seedAdmin(ctx context.Context, users adminCreator, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, fmt.Errorf("username and password are required")
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return false, err
	}
	return users.CreateIfAbsent(ctx, &models.User{Username: username, PasswordHash: hash, IsAdmin: true})
}
