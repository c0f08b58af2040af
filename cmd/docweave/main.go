package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"docweave/internal/builder"
	"docweave/internal/config"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docweave",
		Short: "Documentation builder with generated includes",
	}
	configPath string
	outputDir  string
	noCache    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the project configuration file")

	buildCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides the configured one)")
	buildCmd.Flags().BoolVar(&noCache, "no-cache", false, "Rebuild every document, ignoring the incremental cache")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
}

// loadConfig loads the project configuration and applies flag overrides.
func loadConfig(sourceArg string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if sourceArg != "" {
		cfg.Project.Source = sourceArg
	}
	if outputDir != "" {
		cfg.Project.Output = outputDir
	}
	if noCache {
		cfg.Build.Incremental = false
	}
	return cfg, nil
}

func reportErrors(errs []error) {
	for _, e := range errs {
		fmt.Printf("  ❌ %v\n", e)
	}
}

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build the documentation tree into static HTML",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := ""
		if len(args) > 0 {
			source = args[0]
		}

		cfg, err := loadConfig(source)
		if err != nil {
			log.Fatalf("%v", err)
		}

		b, err := builder.New(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize builder: %v", err)
		}
		defer b.Close()

		fmt.Printf("📂 Building %s -> %s\n", cfg.Project.Source, cfg.Project.Output)
		start := time.Now()

		res, err := b.Build(context.Background())
		if err != nil {
			log.Fatalf("Build failed: %v", err)
		}

		fmt.Printf("✅ Built %d documents (%d up to date) in %v.\n", res.Built, res.Skipped, time.Since(start))
		if res.Failed() {
			fmt.Printf("⚠️  %d directive(s) failed:\n", len(res.Errors))
			reportErrors(res.Errors)
			os.Exit(1)
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Render a single document to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig("")
		if err != nil {
			log.Fatalf("%v", err)
		}
		// Single-document rendering never touches the cache.
		cfg.Build.Incremental = false

		b, err := builder.New(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize builder: %v", err)
		}
		defer b.Close()

		page, errs, err := b.RenderFile(args[0])
		if err != nil {
			log.Fatalf("Render failed: %v", err)
		}

		fmt.Print(page)
		if len(errs) > 0 {
			fmt.Fprintf(os.Stderr, "⚠️  %d directive(s) failed:\n", len(errs))
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "  ❌ %v\n", e)
			}
			os.Exit(1)
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Execute every generated include without writing output",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := ""
		if len(args) > 0 {
			source = args[0]
		}

		cfg, err := loadConfig(source)
		if err != nil {
			log.Fatalf("%v", err)
		}
		// Checking must not mark documents as freshly built.
		cfg.Build.Incremental = false

		b, err := builder.New(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize builder: %v", err)
		}
		defer b.Close()

		fmt.Printf("🔍 Checking %s...\n", cfg.Project.Source)
		res, err := b.Check(context.Background())
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}

		if res.Failed() {
			fmt.Printf("❌ %d directive(s) failed across %d documents:\n", len(res.Errors), res.Built)
			reportErrors(res.Errors)
			os.Exit(1)
		}
		fmt.Printf("✅ %d documents checked, all includes ran cleanly.\n", res.Built)
	},
}
