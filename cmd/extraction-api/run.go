package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apiserver "github.com/contracthub/extraction-service/internal/api_server"
	"github.com/contracthub/extraction-service/internal/audit"
	"github.com/contracthub/extraction-service/internal/config"
	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/internal/store/model"
	"github.com/contracthub/extraction-service/pkg/log"
)

// defaultPrompt seeds the extraction prompt on first start. Operators replace
// it by upserting a template with the same name.
const defaultPrompt = `You are a contract analyst. Extract every contractual clause from the attached document.
Answer with a single JSON object containing "document_info" (parties, dates, amount),
"structure" (chapters and sections), "clauses" (id, type, title, content, confidence,
risk_level, entities, risk_factors, positions) and "quality_metrics".
Use only these clause types: payment, delivery, breach, confidentiality, ip,
dispute_resolution, force_majeure, termination, warranty, indemnity, other.
Use only these risk levels: low, medium, high, critical. Answer with JSON only.`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extraction api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
		if err != nil {
			logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}

		logger := log.InitLog(logLvl)
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting extraction service")
		defer zap.S().Info("Extraction service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		dataStore := store.NewStore(db)
		defer dataStore.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		if err := dataStore.Prompt().Upsert(ctx, model.PromptTemplate{
			ID:      uuid.New(),
			Name:    cfg.Extraction.PromptName,
			Content: defaultPrompt,
			Enabled: true,
		}); err != nil {
			zap.S().Fatalw("seeding prompt template", "error", err)
		}

		auditSink := newAuditSink(cfg)
		defer func() { _ = auditSink.Close() }()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, dataStore, store.NewRiverJobStore(db), listener, auditSink)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("running metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newAuditSink(cfg *config.Config) audit.Sink {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Brokers[0] == "" {
		zap.S().Info("no kafka brokers configured, audit events go to stdout")
		return audit.NewProducer(&audit.StdoutWriter{}, audit.WithOutputTopic(cfg.Kafka.Topic))
	}

	writer, err := audit.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	if err != nil {
		zap.S().Errorw("failed to connect to kafka, audit events go to stdout", "error", err)
		return audit.NewProducer(&audit.StdoutWriter{}, audit.WithOutputTopic(cfg.Kafka.Topic))
	}

	return audit.NewProducer(writer, audit.WithOutputTopic(cfg.Kafka.Topic))
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
