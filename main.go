package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"exposure/analyzer"
	"exposure/api"
	"exposure/article"
	"exposure/config"
	"exposure/images"
	"exposure/notify"
	"exposure/publish"
	"exposure/storage"
	"exposure/taskstore"
	"exposure/types"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()

	port := flag.String("port", cfg.Port, "HTTP API port")
	publishCron := flag.String("publish-cron", cfg.PublishCron, "Cron schedule for the scheduled-publish sweep")
	flag.Parse()

	// Task store: Redis when configured, in-memory otherwise
	var tasks taskstore.Store
	var memTasks *taskstore.MemoryStore
	if cfg.RedisAddr != "" {
		redisStore, err := taskstore.NewRedisStore(taskstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		if err != nil {
			fmt.Printf("Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		tasks = redisStore
		log.Printf("Task store: redis at %s", cfg.RedisAddr)
	} else {
		memTasks = taskstore.NewMemoryStore()
		tasks = memTasks
		log.Println("Task store: in-memory")
	}

	// Article store: Postgres when configured, in-memory otherwise
	var articleStore article.Store
	if cfg.DatabaseDSN != "" {
		pg, err := storage.Open(cfg.DatabaseDSN)
		if err != nil {
			fmt.Printf("Failed to connect to Postgres: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		articleStore = pg
		log.Println("Article store: postgres")
	} else {
		articleStore = article.NewMemoryStore()
		log.Println("Article store: in-memory")
	}

	// Notifications, with Kafka mirroring when brokers are configured
	var notifications *notify.Service
	if len(cfg.KafkaBrokers) > 0 {
		svc, err := notify.NewServiceWithKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("Kafka producer unavailable, notifications stay local: %v", err)
			notifications = notify.NewService()
		} else {
			notifications = svc
			log.Printf("Notifications: kafka topic %s", cfg.KafkaTopic)
		}
	} else {
		notifications = notify.NewService()
	}
	defer notifications.Close()

	selfCheckers := make(map[string]bool, len(cfg.SelfCheckUsers))
	for _, u := range cfg.SelfCheckUsers {
		selfCheckers[u] = true
	}
	articles := article.NewRepository(articleStore, notifications, func(userID string) bool {
		return selfCheckers[userID]
	})

	// Content store: S3 when configured, local stub otherwise
	var contentStore publish.ContentStore
	if cfg.S3Bucket != "" {
		s3Store, err := publish.NewS3Store(context.Background(), publish.S3Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
		})
		if err != nil {
			fmt.Printf("Failed to create S3 content store: %v\n", err)
			os.Exit(1)
		}
		contentStore = s3Store
		log.Printf("Content store: s3://%s", cfg.S3Bucket)
	} else {
		contentStore = publish.NewLocalStore()
		log.Println("Content store: local stub")
	}
	pipeline := publish.NewPipeline(articles, contentStore, cfg.PublicBase).
		WithImageResolver(images.NewChain(cfg.ImageProxyBase, nil), notifications)

	scraper := analyzer.NewMerchantScraper(analyzer.NewPolisher(cfg.CohereKey))
	analysisService := analyzer.NewService(tasks, scraper, config.ResultFreshness, config.AnalyzerWorkers)

	server := api.NewServer(analysisService, tasks, articles, pipeline, notifications)
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: server.Router(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Scheduled-publish sweep plus task-cache janitor
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*publishCron, func() {
		sweepScheduledPublishes(articles, pipeline)
		if memTasks != nil {
			if removed := memTasks.Sweep(24 * time.Hour); removed > 0 {
				log.Printf("janitor: dropped %d stale tasks", removed)
			}
		}
	}); err != nil {
		fmt.Printf("Failed to start cron: %v\n", err)
		os.Exit(1)
	}
	scheduler.Start()

	fmt.Printf("📰 Exposure Service\n")
	fmt.Printf("   API:           http://0.0.0.0:%s\n", *port)
	fmt.Printf("   Publish sweep: %s\n", *publishCron)
	fmt.Println("\nPress Ctrl+C to shutdown")

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Server stopped")
}

// sweepScheduledPublishes publishes ready articles whose publish date has
// passed. Each one goes through the normal pipeline, so idempotency and
// failure semantics are identical to a manual publish.
func sweepScheduledPublishes(articles *article.Repository, pipeline *publish.Pipeline) {
	ctx := context.Background()

	list, err := articles.List(ctx)
	if err != nil {
		log.Printf("sweep: list articles: %v", err)
		return
	}

	for _, a := range list {
		if a.Status != types.StatusReady || a.PublishDate == nil || a.PublishDate.After(time.Now()) {
			continue
		}
		result, err := pipeline.Publish(ctx, a.ID)
		if err != nil {
			log.Printf("sweep: publish %s: %v", a.ID, err)
			continue
		}
		log.Printf("sweep: published %s as %s", a.ID, result.CommitSHA)
	}
}
