package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/nyayatech/nyaya/internal/api/handlers"
	"github.com/nyayatech/nyaya/internal/config"
	"github.com/nyayatech/nyaya/internal/database"
	"github.com/nyayatech/nyaya/internal/jobs"
	"github.com/nyayatech/nyaya/internal/openai"
	"github.com/nyayatech/nyaya/internal/repository"
	"github.com/nyayatech/nyaya/internal/server"
	"github.com/nyayatech/nyaya/internal/service"
	"github.com/nyayatech/nyaya/internal/storage"
	"github.com/nyayatech/nyaya/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the nyaya API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: 10,
		MinConns: 2,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	authorityRepo := repository.NewAuthorityRepository(pool)
	paragraphRepo := repository.NewParagraphRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	weightRepo := repository.NewAgentWeightRepository(pool)
	runLogRepo := repository.NewRunLogRepository(pool)

	var artifactStore *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		artifactStore = s3Client
	}

	var openaiClient *openai.Client
	if cfg.HasOpenAI() {
		openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	}

	segmenter := service.NewSegmenter(service.NewTokenCounter())

	var ingestWorker *jobs.Worker
	if openaiClient != nil {
		ingestionSvc := service.NewIngestionServiceWithTx(segmenter, openaiClient, paragraphRepo, authorityRepo, chunkRepo, repository.NewTxRunner(pool))
		processor := jobs.NewIngestWorker(authorityRepo, ingestionSvc)
		ingestWorker = jobs.NewWorker(processor, cfg.IngestPollInterval)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	} else {
		log.Println("ingest worker disabled: OPENAI_API_KEY required for embeddings")
	}

	sources := []service.CandidateSource{
		repository.NewVectorSource(pool),
		repository.NewLexicalSource(pool),
		repository.NewCitationSource(pool),
	}

	var reranker service.Reranker = service.TermOverlapReranker{}
	if openaiClient != nil {
		reranker = openai.NewReranker(openaiClient)
	}

	var embedder service.EmbeddingClient
	if openaiClient != nil {
		embedder = openaiClient
	}
	retrievalSvc := service.NewRetrievalService(embedder, sources, reranker, authorityRepo)

	agentNames := make([]string, 0, len(service.DefaultAgentCharters))
	for name := range service.DefaultAgentCharters {
		agentNames = append(agentNames, name)
	}
	sort.Strings(agentNames)

	var agents []service.ReasoningAgent
	if openaiClient != nil {
		for _, name := range agentNames {
			agents = append(agents, service.NewPromptAgent(name, service.DefaultAgentCharters[name], openaiClient))
		}
	}
	runner := service.NewAgentRunner(agents, cfg.AgentTimeout)

	weightState := service.NewWeightState(agentNames)
	if persisted, err := weightRepo.LoadAll(ctx); err != nil {
		log.Printf("failed to load persisted agent weights: %v", err)
	} else if len(persisted) > 0 {
		weightState.Load(persisted)
		log.Printf("loaded %d persisted agent weights", len(persisted))
	}

	aggregator := service.NewAggregator(weightState)

	audit := &auditRecorder{
		runLogs:   runLogRepo,
		weights:   weightRepo,
		artifacts: artifactStore,
	}

	answerSvc := service.NewAnswerService(retrievalSvc, runner, aggregator, audit)

	routerCfg := server.RouterConfig{
		SearchHandler:    handlers.NewSearchHandler(retrievalSvc),
		AskHandler:       handlers.NewAskHandler(answerSvc),
		AuthorityHandler: handlers.NewAuthorityHandler(authorityRepo, paragraphRepo),
		WeightsHandler:   handlers.NewWeightsHandler(weightState),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// auditRecorder fans a completed run out to every configured sink: the
// run_logs table, the weight snapshot table, and the optional S3 archive.
// Each sink is best-effort; the first failure is returned after all sinks
// have been attempted.
type auditRecorder struct {
	runLogs   *repository.RunLogRepository
	weights   *repository.AgentWeightRepository
	artifacts *storage.S3Client
}

func (a *auditRecorder) RecordRun(ctx context.Context, result *service.AnswerResult) error {
	var firstErr error

	if err := a.runLogs.RecordRun(ctx, result); err != nil {
		firstErr = err
	}

	if err := a.weights.Upsert(ctx, result.Weights); err != nil {
		log.Printf("audit: weight snapshot failed for query %s: %v", result.QueryID, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if a.artifacts != nil {
		key := "runs/" + result.AnsweredAt.UTC().Format("2006/01/02") + "/" + result.QueryID + ".json"
		if err := a.artifacts.PutJSON(ctx, key, result); err != nil {
			log.Printf("audit: artifact archive failed for query %s: %v", result.QueryID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
