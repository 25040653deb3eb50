package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vinieshwan/parking-system/internal/api"
	"github.com/vinieshwan/parking-system/internal/api/handler"
	"github.com/vinieshwan/parking-system/internal/config"
	"github.com/vinieshwan/parking-system/internal/iot"
	"github.com/vinieshwan/parking-system/internal/lock"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/metrics"
	"github.com/vinieshwan/parking-system/internal/repository"
	"github.com/vinieshwan/parking-system/internal/repository/memory"
	"github.com/vinieshwan/parking-system/internal/repository/mongo"
	"github.com/vinieshwan/parking-system/internal/repository/postgresql"
	"github.com/vinieshwan/parking-system/internal/seed"
	"github.com/vinieshwan/parking-system/internal/service"
)

const shutdownTimeout = 10 * time.Second

// openStore connects the configured storage driver. migrate creates the
// schema or indexes first.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := postgresql.NewDB(ctx, cfg)
		if err != nil {
			return repository.Store{}, nil, err
		}
		if migrate {
			if err := postgresql.Migrate(ctx, db); err != nil {
				db.Close()
				return repository.Store{}, nil, err
			}
		}
		return postgresql.NewStore(db), func() { db.Close() }, nil

	case config.StorageMongo:
		client, err := mongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return repository.Store{}, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		db := client.Database(cfg.MongoDatabase)
		if migrate {
			if err := mongo.Migrate(ctx, db); err != nil {
				closeFn()
				return repository.Store{}, nil, err
			}
		}
		return mongo.NewStore(db), closeFn, nil

	default:
		return memory.New(), func() {}, nil
	}
}

type migrateCmd struct{}

func (migrateCmd) Run(app *appContext) error {
	if app.cfg.StorageDriver == config.StorageMemory {
		app.log.Info("memory storage needs no migration")
		return nil
	}
	_, closeStore, err := openStore(app.ctx, app.cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()
	app.log.Info("migration complete", "storage", app.cfg.StorageDriver)
	return nil
}

type seedCmd struct{}

func (seedCmd) Run(app *appContext) error {
	store, closeStore, err := openStore(app.ctx, app.cfg, false)
	if err != nil {
		return err
	}
	defer closeStore()
	_, err = seed.Run(app.ctx, store, app.log.Named("seed"))
	return err
}

type serveCmd struct {
	SkipMigrate bool `help:"Do not create tables or indexes on start."`
}

func (c serveCmd) Run(app *appContext) error {
	cfg, log := app.cfg, app.log
	ctx := app.ctx

	store, closeStore, err := openStore(ctx, cfg, !c.SkipMigrate)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedOnStart || cfg.StorageDriver == config.StorageMemory {
		if _, err := seed.Run(ctx, store, log.Named("seed")); err != nil {
			return err
		}
	}

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("")
	if err := m.Register(reg); err != nil {
		return err
	}

	var (
		sqsClient   *sqs.Client
		iotClient   *iotdataplane.Client
		rekogClient *rekognition.Client
	)
	if cfg.SQSEventQueueURL != "" || cfg.IoTMQTTEndpoint != "" || cfg.LPREnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		if cfg.SQSEventQueueURL != "" {
			sqsClient = sqs.NewFromConfig(awsCfg)
		}
		if cfg.IoTMQTTEndpoint != "" {
			iotClient = iotdataplane.NewFromConfig(awsCfg, func(o *iotdataplane.Options) {
				o.BaseEndpoint = aws.String(httpsEndpoint(cfg.IoTMQTTEndpoint))
			})
		}
		if cfg.LPREnabled {
			rekogClient = rekognition.NewFromConfig(awsCfg)
		}
	}

	wsManager := handler.NewWebSocketManager(log)
	notifiers := service.MultiNotifier{wsManager}
	if iotClient != nil {
		notifiers = append(notifiers, iot.NewSlotStatePublisher(iotClient, log))
	}

	parkingService := service.NewParkingService(store, locker, notifiers, m, log)
	authService := service.NewAuthService(store.Users, cfg.JWTSecret, cfg.JWTExpirationHours)
	if cfg.AdminUsername != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}
	var detector service.TextDetector
	if rekogClient != nil {
		detector = rekogClient
	}
	lprService := service.NewLPRService(detector, log)

	scheduler, err := service.NewOccupancyScheduler(cfg.OccupancyCronSpec, parkingService, log)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	gin.SetMode(cfg.GinMode)
	router := api.SetupRouter(api.Deps{
		AuthService:    authService,
		ParkingService: parkingService,
		LPRService:     lprService,
		WSManager:      wsManager,
		Metrics:        m,
		Gatherer:       reg,
		Log:            log,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsManager.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("http server listening", "port", cfg.ServerPort, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	if sqsClient != nil {
		consumer := iot.NewSQSConsumer(sqsClient, cfg.SQSEventQueueURL, parkingService, m, log)
		g.Go(func() error { return consumer.Start(gctx) })
	} else {
		log.Warn("sqs event queue url not set, gate command consumer disabled")
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// newLocker uses redis when an address is configured so several replicas
// share plate locks.
func newLocker(ctx context.Context, cfg *config.Config, log logger.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-process plate locks")
		return lock.NewLocal(), func() {}, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("using redis plate locks", "addr", cfg.RedisAddr)
	return lock.NewRedis(client, cfg.PlateLockTTL), func() { client.Close() }, nil
}

func httpsEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		return endpoint
	}
	return "https://" + endpoint
}
