package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nowhere-man/VMA/bd"
	"github.com/nowhere-man/VMA/config"
	"github.com/nowhere-man/VMA/model"
	"github.com/nowhere-man/VMA/report"
	"github.com/nowhere-man/VMA/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bdcalc",
		Short:        "Bjøntegaard-Delta comparison of two encoder configurations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "TOML configuration file")
	root.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	root.PersistentFlags().String("mode", string(bd.ExactMode), "Integration mode (exact, piecewise)")

	root.AddCommand(newReportCmd(), newPairCmd())
	return root
}

// loadConfig resolves the configuration: CLI flags > env vars > config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.BD.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Report.Format, _ = flags.GetString("format")
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Report.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("min-distinct-points") != nil && flags.Changed("min-distinct-points") {
		cfg.Report.MinDistinctPoints, _ = flags.GetInt("min-distinct-points")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := utils.InitLogger(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
	}
	return cfg, nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute per-video BD-Rate and BD-Metric values from a sample table",
		Long: `Reads a CSV or JSON sample table with the columns
video, side (anchor|test), label, bitrate_kbps, psnr, ssim, vmaf, vmaf_neg
and writes one BD record per video plus the average of every column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := utils.GetLogger(cmd.Context())

			input, _ := cmd.Flags().GetString("input")
			points, err := report.LoadSamples(input)
			if err != nil {
				logger.Error("LoadSamples failed", zap.String("input", input), zap.Error(err))
				return err
			}

			builder, err := report.NewBuilder(cfg.ReportOptions())
			if err != nil {
				return err
			}
			res, err := builder.Build(cmd.Context(), points)
			if err != nil {
				logger.Error("Build report failed", zap.Error(err))
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				return report.Write(cmd.OutOrStdout(), res, cfg.Report.Format)
			}
			return writeFile(output, func(w io.Writer) error {
				return report.Write(w, res, cfg.Report.Format)
			})
		},
	}
	cmd.Flags().StringP("input", "i", "", "Sample table (.csv or .json)")
	cmd.Flags().StringP("output", "o", "", "Output file, stdout when empty")
	cmd.Flags().StringP("format", "f", report.FormatTable, "Output format (json, csv, table)")
	cmd.Flags().Int("workers", report.DefaultWorkers, "Videos computed in parallel")
	cmd.Flags().Int("min-distinct-points", report.MinDistinctPoints, "Distinct rate points required before computing BD values")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// writeFile creates path and hands it to write. A failing Close is reported
// unless write already failed.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func newPairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Compute BD-Rate and BD-Metric for a single anchor/test curve pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			calc, err := bd.NewCalculator(cfg.BDOptions())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			anchorRates, _ := flags.GetFloat64Slice("anchor-rates")
			anchorMetric, _ := flags.GetFloat64Slice("anchor-metric")
			testRates, _ := flags.GetFloat64Slice("test-rates")
			testMetric, _ := flags.GetFloat64Slice("test-metric")

			rate, err := calc.BDRate(cmd.Context(), anchorRates, anchorMetric, testRates, testMetric)
			if err != nil {
				return err
			}
			delta, err := calc.BDMetric(cmd.Context(), anchorRates, anchorMetric, testRates, testMetric)
			if err != nil {
				return err
			}
			printPair(cmd.OutOrStdout(), rate, delta)
			return nil
		},
	}
	cmd.Flags().Float64Slice("anchor-rates", nil, "Anchor bitrates in kbps")
	cmd.Flags().Float64Slice("anchor-metric", nil, "Anchor metric values")
	cmd.Flags().Float64Slice("test-rates", nil, "Test bitrates in kbps")
	cmd.Flags().Float64Slice("test-metric", nil, "Test metric values")
	for _, name := range []string{"anchor-rates", "anchor-metric", "test-rates", "test-metric"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func printPair(w io.Writer, rate, delta model.BDResult) {
	if rate.Valid {
		fmt.Fprintf(w, "bd_rate: %.2f%%\n", utils.FormatFloat(rate.Value, 2))
	} else {
		fmt.Fprintln(w, "bd_rate: -")
	}
	if delta.Valid {
		fmt.Fprintf(w, "bd_metric: %.4f\n", utils.FormatFloat(delta.Value, 4))
	} else {
		fmt.Fprintln(w, "bd_metric: -")
	}
}
