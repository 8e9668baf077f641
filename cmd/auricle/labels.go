package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/internal/labelvet"
)

func newLabelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Work with the classification labels file",
	}
	cmd.AddCommand(newLabelsVetCmd())
	return cmd
}

func newLabelsVetCmd() *cobra.Command {
	var (
		configPath string
		labelsPath string
		threshold  float64
	)
	cmd := &cobra.Command{
		Use:   "vet",
		Short: "Report labels that look like near-duplicates",
		Long: `Vet flags label pairs that likely mean the same thing: pairs that share a
Double Metaphone code, and pairs whose Jaro-Winkler similarity exceeds the
threshold. Duplicate labels split classifier probability mass between them,
so near-duplicates are worth merging.

Without --labels the labels file comes from paths.labels_file in the config.
The command exits 1 when suspect pairs are found.`,
		Example: `  auricle labels vet --labels labels.txt
  auricle labels vet --threshold 0.9`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLabelsVet(configPath, labelsPath, threshold)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the analysis config file")
	cmd.Flags().StringVar(&labelsPath, "labels", "", "labels file, one label per line (default: paths.labels_file from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "Jaro-Winkler score above which a pair is flagged")
	return cmd
}

func runLabelsVet(configPath, labelsPath string, threshold float64) error {
	if labelsPath == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
		labelsPath = cfg.Paths.LabelsFile
		if labelsPath == "" {
			return fmt.Errorf("%w: no labels file: pass --labels or set paths.labels_file", errConfig)
		}
	}

	labels, err := labelvet.LoadLabels(labelsPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	dups := labelvet.New(labelvet.WithThreshold(threshold)).Vet(labels)
	if len(dups) == 0 {
		fmt.Printf("%d labels, no near-duplicates\n", len(labels))
		return nil
	}
	for _, d := range dups {
		note := ""
		if d.Phonetic {
			note = "  (sounds alike)"
		}
		fmt.Printf("%.2f  %q ~ %q%s\n", d.Score, d.First, d.Second, note)
	}
	return fmt.Errorf("%d suspect label pairs in %d labels", len(dups), len(labels))
}
