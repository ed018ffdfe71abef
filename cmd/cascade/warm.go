package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newWarmCmd(configPath *string) *cobra.Command {
	var (
		inputFile string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-populate both cache tiers from a file of inputs (one per line)",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(inputFile)
			if err != nil {
				return err
			}

			cfg, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			warmed := svc.WarmCacheConcurrent(cmd.Context(), inputs, workers)
			fmt.Fprintf(cmd.OutOrStdout(), "Warmed %d/%d inputs\n\n", warmed, len(inputs))
			fmt.Fprint(cmd.OutOrStdout(), svc.DetailedStatsReport(cfg.Report.CostPerCall))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "file with one input per line (REQUIRED)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of inputs computed in parallel")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readInputs returns the non-empty lines of path.
func readInputs(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inputs: %w", err)
	}
	defer f.Close()

	var inputs [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		inputs = append(inputs, []byte(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	return inputs, nil
}
