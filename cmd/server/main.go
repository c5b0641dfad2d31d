package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"easystudy-account/internal/config"
	apphttp "easystudy-account/internal/http"
	"easystudy-account/internal/repository"
	"easystudy-account/internal/repository/jsonfile"
	"easystudy-account/internal/repository/sqlite"
	"easystudy-account/internal/security/password"
	"easystudy-account/internal/security/token"
	"easystudy-account/internal/service"
	"easystudy-account/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}
	if cfg.UsesDevSecret() {
		logger.Warn("using the development jwt secret; set JWT_SECRET outside development")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup stores: %v", err)
	}
	defer stores.Close()

	if err := stores.users.Init(ctx); err != nil {
		logger.Fatalf("init user store: %v", err)
	}
	if err := stores.configs.Init(ctx); err != nil {
		logger.Fatalf("init config store: %v", err)
	}

	tokens, err := token.New([]byte(cfg.Auth.JWTSecret), cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}
	accounts := service.NewAccountService(
		stores.users,
		stores.configs,
		password.NewBcrypt(cfg.Auth.BcryptCost),
		tokens,
		service.WithLogger(logger.WithField("component", "accounts")),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	apphttp.NewHandler(accounts, cfg.AllowedOrigins(), logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

type storeSet struct {
	users   repository.UserRepository
	configs repository.ConfigRepository
	db      *sql.DB
}

func (s *storeSet) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storeSet, error) {
	out := &storeSet{}

	if cfg.Store.Driver == config.DriverSQLite || cfg.ConfigStoreDriver() == config.DriverSQLite {
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		out.db = db
		logger.Infof("using sqlite database %s", cfg.Store.SQLitePath)
	}

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		out.users = sqlite.NewUserRepository(out.db)
	default:
		out.users = jsonfile.NewUserRepository(cfg.Data.Dir)
		logger.Infof("storing users under %s", cfg.Data.Dir)
	}

	switch cfg.ConfigStoreDriver() {
	case config.DriverSQLite:
		out.configs = sqlite.NewConfigRepository(out.db)
	case config.DriverS3:
		client, err := buildS3Client(ctx, cfg)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.configs = storage.NewS3ConfigRepository(client, cfg.S3.Bucket, cfg.S3.KeyPrefix)
		logger.Infof("storing configs in s3 bucket %s (region %s)", cfg.S3.Bucket, cfg.S3.Region)
	default:
		out.configs = jsonfile.NewConfigRepository(cfg.Data.Dir)
	}

	return out, nil
}

func buildS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.S3.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
