package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"bakery-backend/internal/config"
	"bakery-backend/internal/env"
	"bakery-backend/internal/infrastructure/asset"
	"bakery-backend/internal/infrastructure/cache"
	"bakery-backend/internal/infrastructure/mail"
	"bakery-backend/internal/infrastructure/repo"
	"bakery-backend/internal/server"
	"bakery-backend/internal/usecase"
)

func main() {
	env.Load(".env", ".env.local")
	envDefaults := config.EnvDefaults()

	envName := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	driver := flag.String("repo-driver", envDefaults.RepoDriver, "mongo, postgres or memory")
	mongoURI := flag.String("mongo-uri", envDefaults.MongoURI, "")
	mongoDB := flag.String("mongo-db", envDefaults.MongoDB, "")
	postgresDSN := flag.String("postgres-dsn", envDefaults.PostgresDSN, "")
	redisAddr := flag.String("redis-addr", envDefaults.RedisAddr, "")
	jwtSecret := flag.String("jwt-secret", envDefaults.JWTSecret, "")
	assetsDir := flag.String("assets", envDefaults.AssetsDir, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")

	flag.Parse()

	cfg := envDefaults
	cfg.Env = *envName
	cfg.Port = *port
	cfg.RepoDriver = *driver
	cfg.MongoURI = *mongoURI
	cfg.MongoDB = *mongoDB
	cfg.PostgresDSN = *postgresDSN
	cfg.RedisAddr = *redisAddr
	cfg.JWTSecret = *jwtSecret
	cfg.AssetsDir = *assetsDir
	cfg.LogJSON = *logJSON

	setupLogging(cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("BAKERY_JWT_SECRET is required")
	}
	ensureDir(cfg.AssetsDir)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, users, products, categories := buildRepos(ctx, cfg)

	var catalogCache cache.CatalogCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, catalog cache disabled")
		} else {
			catalogCache = cache.NewRedisCache(client)
		}
	}

	var mailer usecase.Mailer = mail.LogMailer{}
	if cfg.SMTPAddr != "" {
		mailer = &mail.SMTPMailer{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
	}

	auth := &usecase.AuthService{Users: users, Mail: mailer, JWTSecret: cfg.JWTSecret}
	catalog := &usecase.CatalogService{Categories: categories, Products: products, Cache: catalogCache}
	orderSvc := &usecase.OrderService{Orders: orders, Products: products}
	userSvc := &usecase.UserService{Users: users, Catalog: catalog}

	assets := asset.NewFSWriter(cfg.AssetsDir, cfg.PublicBaseURL)

	srv := server.New(cfg, auth, orderSvc, catalog, userSvc, assets)
	if err := srv.Run(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func buildRepos(ctx context.Context, cfg config.Config) (usecase.OrderRepo, usecase.UserRepo, usecase.ProductRepo, usecase.CategoryRepo) {
	switch cfg.RepoDriver {
	case "mongo":
		db, err := repo.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.WithError(err).Fatal("mongo connection failed")
		}
		m := repo.NewMongo(db)
		if err := m.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("mongo index creation failed")
		}
		return m.Orders, m.Users, m.Products, m.Categories
	case "postgres":
		pg, err := repo.NewPostgresRepo(cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("postgres connection failed")
		}
		return pg.Orders(), pg.Users(), pg.Products(), pg.Categories()
	case "memory":
		return repo.NewMemoryOrderRepo(), repo.NewMemoryUserRepo(), repo.NewMemoryProductRepo(), repo.NewMemoryCategoryRepo()
	default:
		log.WithField("driver", cfg.RepoDriver).Fatal("unknown repo driver")
		return nil, nil, nil, nil
	}
}

func setupLogging(cfg config.Config) {
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if cfg.Env == "dev" {
		log.SetLevel(log.DebugLevel)
	}
}

func ensureDir(p string) {
	if p == "" {
		return
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		_ = os.MkdirAll(p, 0o755)
	}
}
