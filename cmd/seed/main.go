package main

import (
	"fmt"

	"github.com/reflink-next/internal/config"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	affiliateRepo := repository.NewAffiliateRepository(models.DB)
	walletRepo := repository.NewWalletRepository(models.DB)
	tree := service.NewReferralTreeService(affiliateRepo)
	wallet := service.NewWalletService(walletRepo)
	affiliates := service.NewAffiliateService(
		affiliateRepo, tree, wallet, decimal.NewFromFloat(cfg.Referral.DefaultRate))

	// 构造一条四级演示推广链：root → level1 → level2 → level3
	chain := []struct {
		email string
		name  string
	}{
		{"root@reflink.dev", "Root Demo"},
		{"level1@reflink.dev", "Level One"},
		{"level2@reflink.dev", "Level Two"},
		{"level3@reflink.dev", "Level Three"},
	}

	referrerCode := ""
	for _, entry := range chain {
		existing, err := affiliateRepo.GetByEmail(entry.email)
		if err != nil {
			stdLog.Fatalf("Failed to look up affiliate %s: %v", entry.email, err)
		}
		if existing != nil {
			fmt.Printf("已存在: %s (%s)\n", entry.email, existing.ReferralCode)
			referrerCode = existing.ReferralCode
			continue
		}
		created, err := affiliates.Signup(service.AffiliateSignupInput{
			Email:        entry.email,
			DisplayName:  entry.name,
			ReferrerCode: referrerCode,
		})
		if err != nil {
			stdLog.Fatalf("Failed to seed affiliate %s: %v", entry.email, err)
		}
		fmt.Printf("已创建: %s (%s)\n", entry.email, created.ReferralCode)
		referrerCode = created.ReferralCode
	}

	fmt.Println("演示数据初始化完成")
}
