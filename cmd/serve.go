package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/database/postgres"
	"github.com/kozaktomas/sign-vision/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Sign Vision web server.
The server exposes the analyze endpoint used by the mobile client, the
reference sign administration endpoints and the demonstration videos.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	signs, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	users, err := database.GetUserWriter(context.Background())
	if err != nil {
		return err
	}
	sessionRepo := postgres.NewSessionRepository(postgres.GetGlobalPool())
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")

	if err := os.MkdirAll(cfg.Storage.AvatarsDir(), 0o755); err != nil {
		return fmt.Errorf("creating avatars directory: %w", err)
	}

	orchestrator := newOrchestrator(cfg, client, signs)

	// An empty store keeps the existing cache so a generated file survives
	// until "signs import" loads it.
	if count, err := signs.Count(context.Background()); err != nil {
		fmt.Printf("Warning: failed to count signs: %v\n", err)
	} else if count > 0 {
		if n, err := orchestrator.RebuildCache(context.Background()); err != nil {
			fmt.Printf("Warning: failed to rebuild description cache: %v\n", err)
		} else {
			fmt.Printf("Description cache ready with %d signs (%s)\n", n, cfg.Storage.CachePath)
		}
	}

	port, host, sessionSecret := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, web.Services{
		Orchestrator:       orchestrator,
		Signs:              signs,
		Users:              users,
		ReferenceDescriber: ai.NewReferenceDescriber(client, cfg.OpenRouter.DescribeTimeout),
		Usage:              client,
	}, port, host, sessionSecret, sessionRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		if pool := postgres.GetGlobalPool(); pool != nil {
			pool.Close()
		}
	}()

	fmt.Printf("Starting Sign Vision on http://%s:%d (model %s)\n", host, port, client.Name())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
