package provider

import (
	"time"

	"github.com/reflink-next/internal/cache"
	"github.com/reflink-next/internal/config"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/queue"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/service"
	"github.com/reflink-next/internal/shopify"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo      repository.AdminRepository
	AffiliateRepo  repository.AffiliateRepository
	OrderRepo      repository.OrderRepository
	CommissionRepo repository.CommissionRepository
	WalletRepo     repository.WalletRepository

	// Services
	AuthService        *service.AuthService
	AffiliateService   *service.AffiliateService
	ReferralTreeSvc    *service.ReferralTreeService
	WalletService      *service.WalletService
	CommissionService  *service.CommissionService
	AttributionService *service.AttributionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ReferralTreeSvc = service.NewReferralTreeService(c.AffiliateRepo)
	c.WalletService = service.NewWalletService(c.WalletRepo)

	defaultRate := decimal.NewFromFloat(c.Config.Referral.DefaultRate)
	qualifiedRate := decimal.NewFromFloat(c.Config.Referral.QualifiedRate)

	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.ReferralTreeSvc, c.WalletService, defaultRate)
	c.CommissionService = service.NewCommissionService(
		c.AffiliateRepo, c.OrderRepo, c.CommissionRepo, c.WalletRepo,
		c.ReferralTreeSvc, c.WalletService, qualifiedRate)

	var shopifyClient *shopify.Client
	if c.Config.Shopify.ShopDomain != "" && c.Config.Shopify.AdminToken != "" {
		client, err := shopify.NewClient(shopify.Config{
			ShopDomain: c.Config.Shopify.ShopDomain,
			APIVersion: c.Config.Shopify.APIVersion,
			AdminToken: c.Config.Shopify.AdminToken,
			Timeout:    time.Duration(c.Config.Shopify.TimeoutMS) * time.Millisecond,
		})
		if err != nil {
			logger.Warnw("provider_init_shopify_client_failed", "error", err)
		} else {
			shopifyClient = client
		}
	}

	c.AttributionService = service.NewAttributionService(
		c.AffiliateRepo,
		shopifyClient,
		c.Config.Referral.CookieSecret,
		c.Config.Referral.AttributionDays,
		service.DiscountOptions{
			Enabled:        c.Config.Shopify.Discount.Enabled,
			Amount:         decimal.NewFromFloat(c.Config.Shopify.Discount.Amount),
			MinOrderAmount: decimal.NewFromFloat(c.Config.Shopify.Discount.MinOrderAmount),
			CodePrefix:     c.Config.Shopify.Discount.CodePrefix,
		},
	)
}
