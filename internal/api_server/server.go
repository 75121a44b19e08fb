package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/contracthub/extraction-service/internal/ai"
	"github.com/contracthub/extraction-service/internal/audit"
	"github.com/contracthub/extraction-service/internal/config"
	"github.com/contracthub/extraction-service/internal/extraction"
	"github.com/contracthub/extraction-service/internal/extraction/jobs"
	"github.com/contracthub/extraction-service/internal/filestore"
	"github.com/contracthub/extraction-service/internal/handlers"
	"github.com/contracthub/extraction-service/internal/service"
	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/pkg/metrics"
	"github.com/contracthub/extraction-service/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg       *config.Config
	store     store.Store
	riverJobs store.RiverJob
	listener  net.Listener
	auditSink audit.Sink
}

// New returns a new instance of the extraction API server.
func New(
	cfg *config.Config,
	store store.Store,
	riverJobs store.RiverJob,
	listener net.Listener,
	auditSink audit.Sink,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		riverJobs: riverJobs,
		listener:  listener,
		auditSink: auditSink,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	// pgx pool for River; the gorm connection stays separate.
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		s.cfg.Database.Hostname,
		s.cfg.Database.User,
		s.cfg.Database.Password,
		s.cfg.Database.Port,
		s.cfg.Database.Name,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer dbPool.Close()

	gateway, err := ai.NewOpenAIGateway(ai.Config{
		BaseUrl:     s.cfg.AI.BaseUrl,
		Token:       s.cfg.AI.Token,
		Model:       s.cfg.AI.Model,
		Temperature: s.cfg.AI.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to create AI gateway: %w", err)
	}

	files := s.newFileStore()

	worker := jobs.NewExtractWorker(
		s.store,
		files,
		gateway,
		s.auditSink,
		s.cfg.Extraction.PromptName,
		s.cfg.Extraction.MaxPages,
		s.cfg.AI.Model,
	)

	jobClient, err := jobs.NewClient(dbPool, worker, s.cfg.Extraction.MaxWorkers)
	if err != nil {
		return fmt.Errorf("failed to create river client: %w", err)
	}

	if err := jobClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := jobClient.Stop(stopCtx); err != nil {
			zap.S().Named("api_server").Warnw("failed to stop river client", "error", err)
		}
	}()

	zap.S().Named("api_server").Info("River job queue initialized")

	// Reaper for PROCESSING rows whose worker died without a terminal write.
	reaper := extraction.NewReaper(
		s.store,
		time.Duration(s.cfg.Extraction.ProcessingTimeoutMinutes)*time.Minute,
		time.Duration(s.cfg.Extraction.ReaperIntervalMinutes)*time.Minute,
	)
	go reaper.Run(ctx)

	extractionService := service.NewExtractionService(
		s.store,
		jobClient,
		s.riverJobs,
		s.auditSink,
		s.cfg.Service.TriggerMode,
	)

	h := handlers.NewServiceHandler(extractionService)
	h.RegisterRoutes(router)
	router.Get("/health", handlers.Health)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

// newFileStore builds the document resolver chain: object store first, then
// the file service over plain HTTP when configured.
func (s *Server) newFileStore() filestore.FileStore {
	manager := filestore.NewManager()

	minioResolver, err := filestore.NewMinioResolver(
		filestore.WithEndpoint(s.cfg.Storage.Endpoint),
		filestore.WithBucket(s.cfg.Storage.Bucket),
		filestore.WithAccessKey(s.cfg.Storage.AccessKey),
		filestore.WithSecretKey(s.cfg.Storage.SecretKey),
		filestore.WithSSL(s.cfg.Storage.UseSSL),
	)
	if err != nil {
		zap.S().Named("api_server").Warnw("object store resolver unavailable", "error", err)
	} else {
		manager.Register(minioResolver)
	}

	if s.cfg.Storage.FileServiceUrl != "" {
		manager.Register(filestore.NewHttpResolver(s.cfg.Storage.FileServiceUrl))
	}

	return manager
}
