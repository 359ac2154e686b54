package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	cartapp "github.com/wyfcoding/provisionstore/internal/cart/application"
	cartdomain "github.com/wyfcoding/provisionstore/internal/cart/domain"
	cartgateway "github.com/wyfcoding/provisionstore/internal/cart/infrastructure/gateway"
	cartmessaging "github.com/wyfcoding/provisionstore/internal/cart/infrastructure/messaging"
	cartredis "github.com/wyfcoding/provisionstore/internal/cart/infrastructure/persistence/redis"
	carthttp "github.com/wyfcoding/provisionstore/internal/cart/interfaces/http"
	checkoutapp "github.com/wyfcoding/provisionstore/internal/checkout/application"
	checkoutdomain "github.com/wyfcoding/provisionstore/internal/checkout/domain"
	checkoutgateway "github.com/wyfcoding/provisionstore/internal/checkout/infrastructure/gateway"
	checkoutmessaging "github.com/wyfcoding/provisionstore/internal/checkout/infrastructure/messaging"
	checkoutmysql "github.com/wyfcoding/provisionstore/internal/checkout/infrastructure/persistence/mysql"
	checkouthttp "github.com/wyfcoding/provisionstore/internal/checkout/interfaces/http"
	invapp "github.com/wyfcoding/provisionstore/internal/inventory/application"
	invdomain "github.com/wyfcoding/provisionstore/internal/inventory/domain"
	invmessaging "github.com/wyfcoding/provisionstore/internal/inventory/infrastructure/messaging"
	invpersistence "github.com/wyfcoding/provisionstore/internal/inventory/infrastructure/persistence"
	invmysql "github.com/wyfcoding/provisionstore/internal/inventory/infrastructure/persistence/mysql"
	invredis "github.com/wyfcoding/provisionstore/internal/inventory/infrastructure/persistence/redis"
	invhttp "github.com/wyfcoding/provisionstore/internal/inventory/interfaces/http"
	paymentapp "github.com/wyfcoding/provisionstore/internal/payment/application"
	paymentdomain "github.com/wyfcoding/provisionstore/internal/payment/domain"
	paymentmessaging "github.com/wyfcoding/provisionstore/internal/payment/infrastructure/messaging"
	paymentmysql "github.com/wyfcoding/provisionstore/internal/payment/infrastructure/persistence/mysql"
	paymentprovider "github.com/wyfcoding/provisionstore/internal/payment/infrastructure/provider"
	paymenthttp "github.com/wyfcoding/provisionstore/internal/payment/interfaces/http"
	"github.com/wyfcoding/provisionstore/pkg/cache"
	"github.com/wyfcoding/provisionstore/pkg/config"
	"github.com/wyfcoding/provisionstore/pkg/db"
	"github.com/wyfcoding/provisionstore/pkg/logger"
	"github.com/wyfcoding/provisionstore/pkg/metrics"
	"github.com/wyfcoding/provisionstore/pkg/middleware"
	"github.com/wyfcoding/provisionstore/pkg/mq"
)

var configPath = flag.String("config", "configs/storefront/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get()

	// 3. 初始化指标
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		log.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	// 4. 初始化基础设施
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Auto Migrate (仅用于开发方便)
	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&invdomain.Product{},
			&invdomain.StockMovement{},
			&checkoutdomain.Order{},
			&checkoutdomain.OrderItem{},
			&checkoutdomain.TrackingEvent{},
			&paymentdomain.Payment{},
		); err != nil {
			log.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Error("failed to init redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Partitions:     cfg.Kafka.Partitions,
		Replication:    cfg.Kafka.Replication,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     3,
		RetryBackoff:   100,
	})
	if err != nil {
		log.Error("failed to init kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// 5. 库存上下文
	productRepo := invpersistence.NewCompositeProductRepository(
		invmysql.NewProductRepository(database.DB),
		invredis.NewProductCache(redisCache, 10*time.Minute),
	)
	movementRepo := invmysql.NewStockMovementRepository(database.DB)
	invTxm := invmysql.NewTransactionManager(database.DB)
	invPublisher := invmessaging.NewKafkaPublisher(producer)
	invCommands := invapp.NewInventoryCommandService(productRepo, movementRepo, invPublisher, invTxm, cfg.Store.LowStockThreshold)
	invQueries := invapp.NewInventoryQueryService(productRepo, movementRepo, cfg.Store.LowStockThreshold)

	// 6. 购物车上下文
	pricing := cartdomain.NewPricingEngine(
		cfg.Store.Currency,
		decimal.NewFromFloat(cfg.Store.VATRate),
		decimal.NewFromFloat(cfg.Store.MinimumOrder),
		regionsFromConfig(cfg.Store.Regions),
		discountCodesFromConfig(cfg.Store.DiscountCodes),
	)
	cartRepo := cartredis.NewCartRepository(redisCache, 7*24*time.Hour)
	cartPublisher := cartmessaging.NewKafkaPublisher(producer)
	productGateway := cartgateway.NewInventoryGateway(invQueries)
	cartCommands := cartapp.NewCartCommandService(cartRepo, productGateway, pricing, cartPublisher, cfg.Store.PaymentMethods)
	cartQueries := cartapp.NewCartQueryService(cartRepo, productGateway, pricing)

	// 7. 结算上下文
	orderRepo := checkoutmysql.NewOrderRepository(database.DB)
	checkoutTxm := checkoutmysql.NewTransactionManager(database.DB)
	checkoutPublisher := checkoutmessaging.NewKafkaPublisher(producer)
	cartFacade := checkoutgateway.NewCartGateway(cartCommands)
	stockFacade := checkoutgateway.NewStockGateway(invCommands)
	checkoutCommands := checkoutapp.NewCheckoutCommandService(
		orderRepo, cartFacade, stockFacade, checkoutPublisher, checkoutTxm, cfg.Store.PaymentMethods)
	checkoutQueries := checkoutapp.NewCheckoutQueryService(orderRepo)

	// 8. 支付上下文
	providerTimeout := time.Duration(cfg.Payment.TimeoutSeconds) * time.Second
	registry := paymentdomain.NewProviderRegistry()
	registry.Register(paymentprovider.NewPaystackProvider(cfg.Payment.PaystackSecretKey, cfg.Payment.PaystackBaseURL, providerTimeout))
	registry.Register(paymentprovider.NewFlutterwaveProvider(cfg.Payment.FlutterwaveSecretKey, cfg.Payment.FlutterwaveBaseURL, providerTimeout))
	registry.Register(&paymentprovider.BankTransferProvider{
		AccountName:   "Mama Nkechi Provisions Ltd",
		AccountNumber: "0123456789",
		BankName:      "GTBank",
	})
	registry.Register(&paymentprovider.USSDProvider{Code: "*737*2"})
	registry.Register(&paymentprovider.PayOnDeliveryProvider{})

	paymentRepo := paymentmysql.NewPaymentRepository(database.DB)
	paymentPublisher := paymentmessaging.NewKafkaPublisher(producer)
	paymentCommands := paymentapp.NewPaymentCommandService(paymentRepo, registry, paymentPublisher, log)
	paymentQueries := paymentapp.NewPaymentQueryService(paymentRepo, registry, log)

	// 9. HTTP 接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinRateLimitMiddleware(middleware.NewRateLimiter(1000, 100)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	invhttp.NewInventoryHandler(invCommands, invQueries).RegisterRoutes(router)
	carthttp.NewCartHandler(cartCommands, cartQueries).RegisterRoutes(router)
	checkouthttp.NewCheckoutHandler(checkoutCommands, checkoutQueries).RegisterRoutes(router)
	paymenthttp.NewPaymentHandler(paymentCommands, paymentQueries).RegisterRoutes(router)

	// 10. 启动与优雅关闭
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			log.Info("shutting down server...")
		case <-ctx.Done():
			log.Info("context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
	}
}

func regionsFromConfig(regions []config.RegionConfig) []cartdomain.Region {
	out := make([]cartdomain.Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, cartdomain.Region{
			Name:          r.Name,
			ShippingFee:   decimal.NewFromFloat(r.ShippingFee),
			EstimatedDays: r.EstimatedDays,
		})
	}
	return out
}

func discountCodesFromConfig(codes map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(codes))
	for code, rate := range codes {
		out[code] = decimal.NewFromFloat(rate)
	}
	return out
}
