// package main provides the entry point for the vulngraph-backend
// microservice: advisory ingestion over Kafka and REST, the periodic
// improve pipeline deriving package-vulnerability edges, and the
// GraphQL/REST query API over the graph.
package main

import (
	"context"
	"log"
	"time"

	"github.com/vulngraph/vulngraph-backend/config"
	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/api"
	"github.com/vulngraph/vulngraph-backend/internal/catalog"
	"github.com/vulngraph/vulngraph-backend/internal/improve"
	"github.com/vulngraph/vulngraph-backend/internal/kafka"
	"github.com/vulngraph/vulngraph-backend/internal/merge"
	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
	"github.com/vulngraph/vulngraph-backend/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db := database.InitializeDatabase()
	logger := database.InitLogger()

	scoring, err := util.LoadScoringSystems(cfg.ScoringSystemsPath)
	if err != nil {
		log.Fatalf("Failed to load scoring-system catalog: %v", err)
	}

	advisoryStore := &normalizer.ArangoStore{DB: db}
	norm := normalizer.New(advisoryStore, scoring, logger)

	ctx := context.Background()

	// Advisory event consumer
	if err := kafka.RunEventProcessor(ctx, cfg.KafkaBrokers, norm); err != nil {
		logger.Sugar().Warnf("Kafka unavailable, continuing without event processor: %v", err)
	}

	// Improve pipeline: resolve advisory ranges against the version
	// catalog and converge the edge graph.
	provider := catalog.NewCached(catalog.NewGitHubTags(nil, cfg.GitHubToken))
	engine := merge.NewEngine(&merge.ArangoStore{DB: db}, cfg.MaxConfidence, logger)
	graph := &improve.ArangoGraph{DB: db, Logger: logger}
	improver := improve.NewDefaultImprover(advisoryStore, provider, nil, cfg.MaxConfidence, logger)
	runner := improve.NewRunner([]improve.Improver{improver}, engine, graph, cfg.ImproveWorkers, logger)

	go func() {
		interval := 10 * time.Minute
		if v := util.GetEnvDefault("IMPROVE_INTERVAL", ""); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				interval = parsed
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := runner.Run(ctx); err != nil {
				logger.Sugar().Errorf("Improve run failed: %v", err)
			}
			<-ticker.C
		}
	}()

	// REST and GraphQL API
	app := api.NewFiberApp(db, norm)

	port := util.GetEnvDefault("MS_PORT", "3000")

	log.Printf("Starting server on port %s", port)
	log.Printf("GraphQL endpoint available at /api/v1/graphql")
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
