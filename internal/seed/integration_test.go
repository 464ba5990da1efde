//go:build integration

package seed

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"quad/internal/config"
	"quad/internal/database"
	"quad/internal/models"
)

func parseDatabaseURLToConfig(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	cfg := &config.Config{
		DBHost:       u.Hostname(),
		DBPort:       port,
		DBUser:       u.User.Username(),
		DBPassword:   password,
		DBName:       strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:    "disable",
		Env:          "test",
		DBSchemaMode: "auto",
	}
	return cfg, nil
}

func TestIntegration_SeedAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	cfg, err := parseDatabaseURLToConfig(dsn)
	if err != nil {
		t.Fatalf("failed to parse dsn: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}
	if err := database.TruncateAllTables(db); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	if err := Seed(db, Options{NumUsers: 10, NumPosts: 40, SkipBcrypt: true, BatchSize: 50, MaxDays: 30}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var postCount int64
	if err := db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if postCount == 0 {
		t.Fatal("expected seeded posts, got 0")
	}

	var memberCount int64
	if err := db.Model(&models.CommunityMember{}).Count(&memberCount).Error; err != nil {
		t.Fatalf("count memberships failed: %v", err)
	}
	if memberCount == 0 {
		t.Fatal("expected seeded community memberships, got 0")
	}
}
