package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NWeiss87/auricle/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the analysis configuration",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the config, printing the effective settings",
		Long: `Check loads the configuration file, applies defaults, validates it, and
prints a summary of what an analysis run would use. It exits 2 when the
file is unreadable or invalid.`,
		Example: `  auricle config check
  auricle config check --config analysis.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigCheck(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the analysis config file")
	return cmd
}

func runConfigCheck(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	printConfigSummary(cfg)
	return nil
}

// ── Config summary ────────────────────────────────────────────────────────────

func printConfigSummary(cfg *config.Config) {
	enabled := 0
	for _, m := range cfg.Models {
		if m.UseModel {
			enabled++
		}
	}

	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║       Auricle — effective config       ║")
	fmt.Println("╠════════════════════════════════════════╣")
	printRow("Transcript dirs", fmt.Sprintf("%d", len(cfg.Paths.TranscriptDirs)))
	printRow("Audio dirs", fmt.Sprintf("%d", len(cfg.Paths.AudioDirs)))
	outDir := cfg.Paths.OutputDir
	if outDir == "" {
		outDir = "(next to input)"
	}
	printRow("Output dir", outDir)
	printRow("Models enabled", fmt.Sprintf("%d of %d", enabled, len(cfg.Models)))
	printRow("Chunking", fmt.Sprintf("%ds / %d segs", cfg.Chunking.MaxTimeDiffSeconds, cfg.Chunking.MaxSegmentCount))
	if cfg.Astrology.Enabled {
		printRow("Astrology", "enabled")
	} else {
		printRow("Astrology", "(disabled)")
	}
	if cfg.Interpret.Enabled {
		printRow("Interpretation", string(cfg.Interpret.Provider)+" / "+cfg.Interpret.Model)
	} else {
		printRow("Interpretation", "(disabled)")
	}
	if cfg.Store.DSN != "" {
		printRow("Archive store", "postgres")
		printRow("Embeddings", string(cfg.Store.EmbeddingProvider)+" / "+cfg.Store.EmbeddingModel)
	} else {
		printRow("Archive store", "(disabled)")
	}
	if cfg.Metrics.Addr != "" {
		printRow("Metrics addr", cfg.Metrics.Addr)
	} else {
		printRow("Metrics addr", "(disabled)")
	}
	logValue := string(cfg.Log.Level)
	if cfg.Log.File != "" {
		logValue += " + file"
	}
	printRow("Log", logValue)
	fmt.Println("╚════════════════════════════════════════╝")

	if len(cfg.Models) > 0 {
		fmt.Println()
		fmt.Println("Models in run order:")
		for _, m := range cfg.Models {
			state := "enabled"
			if !m.UseModel {
				state = "disabled"
			}
			fmt.Printf("  %-8s  %-26s  %s\n", state, m.ModelType, m.ModelName)
		}
	}
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-15s : %-19s ║\n", label, value)
}
