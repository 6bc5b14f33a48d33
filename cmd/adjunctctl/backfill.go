package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/internal/pipeline"
	"adjunct-search-go/internal/repository"
	"adjunct-search-go/internal/service"
	"adjunct-search-go/pkg/database"
	"adjunct-search-go/pkg/embedding"
	"adjunct-search-go/pkg/es"
	"adjunct-search-go/pkg/kafka"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed resumes that have text but no embedding for the configured model",
	Long:  "Finds resumes whose embedding is missing or was produced by another model and either embeds them in-process or enqueues them on Kafka.",
	RunE:  runBackfill,
}

var (
	backfillLimit   int
	backfillEnqueue bool
)

func init() {
	backfillCmd.Flags().IntVarP(&backfillLimit, "limit", "n", 500, "Maximum number of resumes to process")
	backfillCmd.Flags().BoolVar(&backfillEnqueue, "enqueue", false, "Publish tasks to Kafka instead of embedding in-process")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg := config.Conf
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(cfg.Database.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	resumeRepo := repository.NewResumeRepository(db)

	// 不使用查询缓存
	generator := embedding.NewGenerator(embedding.NewClient(cfg.Embedding), cfg.Embedding, nil)
	defer generator.Close()

	var sink pipeline.TaskSink
	if backfillEnqueue {
		if cfg.Kafka.Brokers == "" {
			return fmt.Errorf("--enqueue requires kafka.brokers")
		}
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		sink = pipeline.SinkFunc(producer.Enqueue)
	} else {
		if err := generator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialise embedding model: %w", err)
		}
		var index pipeline.Indexer
		if cfg.Search.Retriever == "elasticsearch" {
			if err := es.InitES(cfg.Elasticsearch, generator.Dimensions()); err != nil {
				return fmt.Errorf("failed to initialise elasticsearch: %w", err)
			}
			index = service.NewESResumeIndex(cfg.Elasticsearch.IndexName)
		}
		sink = pipeline.NewProcessor(resumeRepo, generator, index)
	}

	report, err := pipeline.Backfill(ctx, resumeRepo, generator.Model(), backfillLimit, sink)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "found=%d succeeded=%d failed=%d\n", report.Found, report.Succeeded, report.Failed)
	return nil
}
