package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ademuri/music-tracker/internal/analysis"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generates a YAML listening report",
	Long:  `Analyzes your listening history for a period and prints a detailed YAML report of your habits.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		period, _ := cmd.Flags().GetString("period")
		depth, _ := cmd.Flags().GetString("depth")
		err := runReport(cmd.Context(), os.Stdout, period, depth)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("period", string(analysis.PeriodYear), "week, month, year or all")
	reportCmd.Flags().String("depth", string(analysis.DepthFull), "deep, sessions, personality, milestones or full")
}

func runReport(ctx context.Context, out io.Writer, period, depth string) error {
	report, err := buildReport(ctx, period, depth)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	err = encoder.Encode(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return encoder.Close()
}

// buildReport loads the period's plays, scans the full history once, and
// runs the analysis engine over both.
func buildReport(ctx context.Context, period, depth string) (*analysis.Report, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	p, err := analysis.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	d, err := analysis.ParseDepth(depth)
	if err != nil {
		return nil, err
	}

	engine := analysis.NewEngine(analysis.Config{SessionBreak: cfg.SessionBreak})
	w := engine.Window(p)

	s, err := openExistingStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ds, err := s.Window(ctx, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("reading plays: %w", err)
	}
	life, err := analysis.ScanHistory(s.QueryAll(ctx))
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return engine.Report(ds, life, w, d), nil
}
