package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin-radar/internal/bot"
	"coin-radar/internal/cache"
	"coin-radar/internal/catalog"
	"coin-radar/internal/chart"
	"coin-radar/internal/config"
	"coin-radar/internal/db"
	"coin-radar/internal/handler"
	"coin-radar/internal/job"
	"coin-radar/internal/lexicon"
	"coin-radar/internal/provider"
	"coin-radar/internal/related"
	"coin-radar/internal/repository"
	"coin-radar/internal/service"
	"coin-radar/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "coin-radar/docs"
)

var (
	loadEnvFunc               = godotenv.Load
	loadConfigFunc            = config.Load
	initPostgresFunc          = db.InitPostgres
	initRedisFunc             = cache.InitRedis
	initTracerFunc            = tracing.InitTracer
	newPriceRepoFunc          = repository.NewPriceRepository
	newCoinMarketCapFunc      = provider.NewCoinMarketCap
	newCatalogRefresherFunc   = job.NewCatalogRefresher
	startCatalogRefresherFunc = func(r *job.CatalogRefresher, ctx context.Context) {
		go func() {
			if err := r.Start(ctx); err != nil {
				log.Fatalf("catalog refresher: %v", err)
			}
		}()
	}
	newPriceServiceFunc  = service.NewPriceService
	newDetectServiceFunc = service.NewDetectService
	startTelegramBotFunc = bot.StartTelegramBot
	newHandlerFunc       = handler.New
	newRouterFunc        = gin.Default
	setupSignalNotify    = signal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Coin Radar API
// @version         1.0
// @description     Detects cryptocurrency mentions in text and returns price history, charts, and related currencies.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create the price-point store and run migrations. The store is
	// optional; without Postgres the service runs on Redis and the
	// provider alone.
	var priceStore service.PriceStore
	if db.Pool != nil {
		priceRepo := newPriceRepoFunc(db.Pool, tracer)
		if err := priceRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		priceStore = priceRepo
	}

	// Market-data provider
	cmc := newCoinMarketCapFunc(tracer)

	// Related-currency enrichment, disabled without an API key
	var embedder related.Embedder
	if cfg.OpenAIAPIKey != "" {
		embedder = related.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	}
	relatedService := related.NewService(tracer, embedder, cfg.RelatedLimit)

	// Catalog: built from the provider listing, filtered against the
	// dictionary lexicon, refreshed in the background
	holder := catalog.NewHolder()
	exclusions := append(append([]string{}, catalog.DefaultExclusions...), cfg.CatalogExclusions...)
	refresher := newCatalogRefresherFunc(tracer, cmc, holder, lexicon.New(), exclusions, relatedService, cfg.CatalogRefreshHours)
	startCatalogRefresherFunc(refresher, ctx)

	// Detection pipeline
	priceService := newPriceServiceFunc(tracer, cmc, priceStore, cache.Client, cfg.LookbackDays, cfg.PriceCacheHours)
	renderer := chart.FromConfig(cfg.ChartBackend, time.Duration(cfg.ChartTimeoutSecs)*time.Second, tracer)
	detectService := newDetectServiceFunc(tracer, holder, priceService, renderer, relatedService, cache.Client, cfg.DetectCacheHours, cfg.AssembleWorkers)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(detectService, holder, cmc, cfg.DefaultLimit)

	// Create handlers and routes
	h := newHandlerFunc(tracer, detectService, cfg.DefaultLimit)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coin-radar"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
