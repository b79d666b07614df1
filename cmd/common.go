package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/database/postgres"
	"github.com/kozaktomas/sign-vision/internal/media"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
)

// newModelClient validates the configuration and builds the OpenRouter client.
func newModelClient(cfg *config.Config) (*ai.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := ai.NewClient(&cfg.OpenRouter, cfg.GetModelPricing(cfg.OpenRouter.Model))
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	return client, nil
}

// connectDatabase initializes PostgreSQL and returns the sign repository.
func connectDatabase(cfg *config.Config) (database.SignWriter, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return database.GetSignWriter(context.Background())
}

// newOrchestrator wires the user-facing describer and the matcher around
// client. Signs added through it are described the same way as uploads to
// POST /signs.
func newOrchestrator(cfg *config.Config, client ai.Completer, signs database.SignWriter) *pipeline.Orchestrator {
	return pipeline.New(
		ai.NewDescriber(client, cfg.OpenRouter.DescribeTimeout),
		ai.NewMatcher(client, cfg.OpenRouter.MatchTimeout),
		signs,
		media.NewStore(cfg.Storage.AvatarsDir()),
		cfg.Storage.CachePath,
	)
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// printUsage prints accumulated token usage and cost.
func printUsage(client *ai.Client) {
	usage := client.GetUsage()
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return
	}
	fmt.Printf("\nAPI Usage (%s):\n", client.Name())
	fmt.Printf("  Requests: %d\n", usage.Requests)
	fmt.Printf("  Input tokens: %d\n", usage.InputTokens)
	fmt.Printf("  Output tokens: %d\n", usage.OutputTokens)
	fmt.Printf("  Total cost: $%.4f\n", usage.TotalCost)
}
