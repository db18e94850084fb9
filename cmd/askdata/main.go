package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redbco/askdata/internal/agent/document"
	"github.com/redbco/askdata/internal/agent/relational"
	"github.com/redbco/askdata/internal/agent/tabular"
	"github.com/redbco/askdata/internal/engine"
	"github.com/redbco/askdata/internal/llm"
	"github.com/redbco/askdata/internal/router"
	"github.com/redbco/askdata/pkg/config"
	"github.com/redbco/askdata/pkg/logger"
	"github.com/redbco/askdata/pkg/models"
)

var (
	Version   = "dev"     // Default version for development
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

var datasourcesFile string

func printVersionInfo() {
	fmt.Printf("askdata %s\n", Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

var rootCmd = &cobra.Command{
	Use:   "askdata",
	Short: "Natural-language query service for relational, document and tabular datasources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return serve()
	},
}

func init() {
	rootCmd.Flags().Bool("version", false, "Show version information and exit")
	rootCmd.Flags().StringVar(&datasourcesFile, "datasources", "", "Path to a JSON file of datasource records to preload")
}

func serve() error {
	log := logger.New("askdata", "1.0.0")

	cfg := config.New()
	cfg.LoadEnv("ASKDATA_")

	ollamaCfg := llm.DefaultOllamaConfig()
	if url := cfg.Get("llm.ollama.url"); url != "" {
		ollamaCfg.BaseURL = url
	}
	ollama := llm.NewOllamaClient(ollamaCfg, log)

	groq := llm.NewGroqClient(&llm.GroqConfig{
		APIKey: cfg.Get("llm.groq.api.key"),
		Model:  cfg.Get("llm.groq.model"),
	}, log)

	generator := llm.NewGenerator(log, ollama, groq)

	registry := router.NewMemoryRegistry()
	if datasourcesFile != "" {
		if err := loadDatasources(registry, datasourcesFile); err != nil {
			return fmt.Errorf("failed to load datasources: %v", err)
		}
	}

	queryRouter := router.New(log, registry, generator,
		relational.New(log),
		document.New(log),
		tabular.New(log),
	)

	eng := engine.NewEngine(cfg, queryRouter, ollama, groq)
	eng.SetLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %v", err)
	}
	log.Info("askdata service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown: %v", err)
		return err
	}

	log.Info("askdata service stopped")
	return nil
}

// loadDatasources seeds the registry from a JSON array of datasource
// records.
func loadDatasources(registry *router.MemoryRegistry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var records []models.Datasource
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}

	for i := range records {
		registry.Add(&records[i])
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
