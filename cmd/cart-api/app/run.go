package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/7amooo12/SamaStylestore/configs"
	"github.com/7amooo12/SamaStylestore/internal/adapter/cache"
	"github.com/7amooo12/SamaStylestore/internal/adapter/http"
	"github.com/7amooo12/SamaStylestore/internal/adapter/http/middleware"
	"github.com/7amooo12/SamaStylestore/internal/adapter/kafka"
	"github.com/7amooo12/SamaStylestore/internal/adapter/observ"
	"github.com/7amooo12/SamaStylestore/internal/adapter/payment"
	"github.com/7amooo12/SamaStylestore/internal/adapter/queue"
	"github.com/7amooo12/SamaStylestore/internal/adapter/repo"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/pricing"
	"github.com/7amooo12/SamaStylestore/internal/security"
	"github.com/7amooo12/SamaStylestore/internal/session"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router  *gin.Engine
	Ready   http.Pinger
	Workers []Worker
}

// Worker is a background loop that runs until ctx is cancelled.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// cleanups run in reverse registration order.
type cleanups []func()

func (cs *cleanups) add(f func()) { *cs = append(*cs, f) }

func (cs cleanups) run() {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i]()
	}
}

func InitWithConfig(ctx context.Context, cfg configs.Config) (_ *App, _ func(), err error) {
	log := logging.New("bootstrap")
	var closers cleanups
	defer func() {
		if err != nil {
			closers.run()
		}
	}()

	shutdownTracing, err := initTracing(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}
	closers.add(func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	})

	// init database
	var db *sql.DB
	if cfg.Cart.Store == "mysql" || cfg.Catalog.Source == "mysql" {
		if db, err = openMySQL(ctx, cfg); err != nil {
			return nil, nil, fmt.Errorf("mysql: %w", err)
		}
		closers.add(func() { _ = db.Close() })
	}

	// init redis
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers.add(func() { _ = rdb.Close() })
		if err = rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
	}

	// infra
	var store usecase.CartStore
	switch cfg.Cart.Store {
	case "redis":
		store = cache.NewRedisCartStore(rdb)
	case "mysql":
		store = repo.NewMySQLCartStore(db)
	default:
		store = repo.NewMemoryCartStore()
	}

	var catalog interface {
		usecase.Catalog
		usecase.CatalogBrowser
	}
	if cfg.Catalog.Source == "mysql" {
		catalog = repo.NewMySQLCatalog(db)
	} else {
		catalog = repo.NewSeededCatalog()
	}

	engine, err := newPricingEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	orphans, err := usecase.ParseOrphanPolicy(cfg.Cart.OrphanPolicy)
	if err != nil {
		return nil, nil, err
	}
	carts := usecase.NewCartService(store, catalog, engine,
		usecase.WithOrphanPolicy(orphans),
		usecase.WithCurrency(cfg.Pricing.Currency),
		usecase.WithRecorder(observ.NewPromRecorder()),
	)

	var gateway usecase.PaymentGateway
	if cfg.Payments.Provider == "stripe" {
		gateway = payment.NewStripeGateway(cfg.Payments.StripeSecretKey, nil)
	} else {
		log.Warn("using fake payment gateway")
		gateway = payment.NewFakeGateway()
	}

	var idem usecase.IdempotencyStore
	if rdb != nil {
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	}

	// init rabbitmq: one channel publishes, one consumes
	var events usecase.EventPublisher
	var conn *amqp.Connection
	if cfg.Rabbit.Enabled {
		if conn, err = amqp.Dial(cfg.Rabbit.URL); err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		closers.add(func() { _ = conn.Close() })
		pubCh, err := conn.Channel()
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
		}
		if err := queue.DeclareTopology(pubCh, cfg.Rabbit.StatusQueue); err != nil {
			return nil, nil, fmt.Errorf("rabbitmq topology: %w", err)
		}
		events = queue.NewRabbitProducer(pubCh)
	}

	checkout := usecase.NewCheckout(carts, gateway, idem, events)
	status := queue.NewPaymentStatusHandler(checkout)
	a := &App{Ready: store}

	// register queue-handler
	if conn != nil {
		subCh, err := conn.Channel()
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
		}
		opts := []queue.RouterOption{queue.WithTimeout(cfg.Cart.CallTimeout)}
		if cfg.Rabbit.Prefetch > 0 {
			opts = append(opts, queue.WithPrefetch(cfg.Rabbit.Prefetch))
		}
		router := queue.NewRouter(subCh, opts...)
		router.Register(cfg.Rabbit.StatusQueue, status.Delivery())
		a.Workers = append(a.Workers, Worker{Name: "rabbitmq", Run: router.Run})
	}

	// register kafka-listener
	if cfg.Kafka.Enabled {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ClientID, cfg.Kafka.Version)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka: %w", err)
		}
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, status.HandleStatus)
		closers.add(func() { _ = consumer.Close() })
		a.Workers = append(a.Workers, Worker{Name: "kafka", Run: consumer.Start})
	}

	var sessions session.Provider = session.NewOpaqueProvider()
	if cfg.Session.Mode == "signed" {
		sessions = session.NewSignedProvider(cfg.Session.SigningSecret, cfg.Session.Issuer, cfg.Session.TTL)
	}

	var sigs security.SignatureService
	if cfg.Payments.WebhookPubPEM != "" {
		km, err := security.LoadKeyMaterial(cfg.Payments.WebhookPubPEM, "")
		if err != nil {
			return nil, nil, err
		}
		if sigs, err = security.NewSignatureService(km); err != nil {
			return nil, nil, err
		}
	}

	// init handlers + routers + middleware
	a.Router = http.NewRouter(http.RouterDeps{
		Cart:          http.NewCartHandler(carts, cfg.Cart.CallTimeout),
		Products:      http.NewProductHandler(catalog, cfg.Cart.CallTimeout),
		Checkout:      http.NewCheckoutHandler(carts, checkout, cfg.Cart.CallTimeout),
		Token:         http.NewTokenHandler(cfg, security.ClientsFromConfig(cfg)),
		Authz:         middleware.NewAuthz(cfg),
		Webhook:       middleware.NewWebhookVerify(sigs),
		Sessions:      sessions,
		SessionHeader: cfg.Session.Header,
		Ready:         store,
	})

	log.Info("cart-api wired",
		"store", cfg.Cart.Store, "catalog", cfg.Catalog.Source, "payments", cfg.Payments.Provider,
		"rabbitmq", cfg.Rabbit.Enabled, "kafka", cfg.Kafka.Enabled, "idempotency", idem != nil)

	return a, closers.run, nil
}

func openMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MySQL.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.MySQL.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	}
	if cfg.MySQL.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newPricingEngine(cfg configs.Config) (*pricing.Engine, error) {
	rate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}
	flat, freeOver, err := cfg.ShippingRates()
	if err != nil {
		return nil, err
	}
	var shipping pricing.ShippingPolicy = pricing.FlatRate(flat)
	if freeOver != nil {
		shipping = pricing.FreeOver{Threshold: *freeOver, Fee: flat}
	}
	return pricing.New(
		pricing.WithTaxRate(rate),
		pricing.WithScale(cfg.Pricing.Scale),
		pricing.WithShipping(shipping),
	), nil
}
