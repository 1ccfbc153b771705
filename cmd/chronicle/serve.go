package chronicle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronicle-kb/chronicle/pkg/config"
	"github.com/chronicle-kb/chronicle/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chronicle HTTP server",
	Long: `Start the chronicle HTTP server to provide REST API access to the
knowledge store.

The server provides endpoints for:
- Resolving and merging entities
- Creating, superseding and synthesizing facts
- Ingesting raw text
- Point-in-time queries, diffs and ranked search
- Conflict detection and resolution
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
	serveMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Server host")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Server port")
	serveCmd.Flags().StringVar(&serveMode, "mode", "debug", "Server mode (debug, release, test)")

	serveCmd.Flags().String("store-driver", "memory", "Store driver (memory, postgres, neo4j)")
	serveCmd.Flags().String("store-dsn", "", "Postgres connection string")
	serveCmd.Flags().String("store-uri", "", "Neo4j URI")
	serveCmd.Flags().String("store-username", "", "Neo4j username")
	serveCmd.Flags().String("store-password", "", "Neo4j password")
	serveCmd.Flags().String("store-database", "", "Neo4j database name")

	serveCmd.Flags().Bool("embedding", false, "Enable the embedding client")
	serveCmd.Flags().String("embedding-model", "", "Embedding model")
	serveCmd.Flags().String("embedding-api-key", "", "Embedding API key")
	serveCmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	serveCmd.Flags().String("extraction-method", "", "Extraction method (rule_based, llm)")
	serveCmd.Flags().String("extraction-model", "", "LLM extraction model")
	serveCmd.Flags().String("extraction-api-key", "", "LLM extraction API key")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServeConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	kb, err := buildClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize chronicle: %w", err)
	}
	defer kb.Close()

	srv := server.New(cfg, kb)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		fmt.Println("Server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serveMode
	}

	if cmd.Flags().Changed("store-driver") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("store-driver")
	}
	if cmd.Flags().Changed("store-dsn") {
		cfg.Store.DSN, _ = cmd.Flags().GetString("store-dsn")
	}
	if cmd.Flags().Changed("store-uri") {
		cfg.Store.URI, _ = cmd.Flags().GetString("store-uri")
	}
	if cmd.Flags().Changed("store-username") {
		cfg.Store.Username, _ = cmd.Flags().GetString("store-username")
	}
	if cmd.Flags().Changed("store-password") {
		cfg.Store.Password, _ = cmd.Flags().GetString("store-password")
	}
	if cmd.Flags().Changed("store-database") {
		cfg.Store.Database, _ = cmd.Flags().GetString("store-database")
	}

	if cmd.Flags().Changed("embedding") {
		cfg.Embedding.Enabled, _ = cmd.Flags().GetBool("embedding")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}
	if cmd.Flags().Changed("embedding-base-url") {
		cfg.Embedding.BaseURL, _ = cmd.Flags().GetString("embedding-base-url")
	}

	if cmd.Flags().Changed("extraction-method") {
		cfg.Extraction.Method, _ = cmd.Flags().GetString("extraction-method")
	}
	if cmd.Flags().Changed("extraction-model") {
		cfg.Extraction.Model, _ = cmd.Flags().GetString("extraction-model")
	}
	if cmd.Flags().Changed("extraction-api-key") {
		cfg.Extraction.APIKey, _ = cmd.Flags().GetString("extraction-api-key")
	}
}

func validateServeConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return nil
}
