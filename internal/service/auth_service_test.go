package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/reflink-next/internal/config"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "auth-service-test-secret-key-0123456789"
	cfg.JWT.ExpireHours = 24
	return NewAuthService(cfg, repository.NewAdminRepository(db)), db
}

func createAuthTestAdmin(t *testing.T, svc *AuthService, db *gorm.DB, username, password string) *models.Admin {
	t.Helper()
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: username, PasswordHash: hash}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	hash, err := svc.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := svc.VerifyPassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("correct password should verify: %v", err)
	}
	if err := svc.VerifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatalf("wrong password should not verify")
	}
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	createAuthTestAdmin(t, svc, db, "ops", "correct-horse")

	admin, token, expiresAt, err := svc.Login("ops", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("login should issue a future-dated token")
	}
	if admin.LastLoginAt == nil {
		t.Fatalf("login should stamp last login time")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "ops" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	createAuthTestAdmin(t, svc, db, "ops", "correct-horse")

	if _, _, _, err := svc.Login("ops", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password want ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login("nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user want ErrInvalidCredentials, got %v", err)
	}
}

func TestParseJWTRejectsGarbageAndForeignKey(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	if _, err := svc.ParseJWT("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token want ErrInvalidToken, got %v", err)
	}

	other, _ := setupAuthServiceTest(t)
	other.cfg.JWT.SecretKey = "a-completely-different-secret-key-abcdef"
	foreign, _, err := other.GenerateJWT(&models.Admin{Username: "ops"})
	if err != nil {
		t.Fatalf("generate foreign token failed: %v", err)
	}
	if _, err := svc.ParseJWT(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign-signed token want ErrInvalidToken, got %v", err)
	}
}
