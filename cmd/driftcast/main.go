package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "driftcast"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Walk-forward forecasting and signal backtesting engine",
		Version: version,
		Long: `driftcast fits conditional mean/variance models over rolling windows of
daily log returns, maps one-step forecasts to buy/sell/hold signals, and
backtests the accumulated signal series against a passive benchmark.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full walk-forward pipeline",
		Long:  "Load prices, check stationarity, walk all rolling windows, backtest the signals, and write artifacts",
		RunE:  runRun,
	}
	runCmd.Flags().String("csv", "", "Local date,adj_close CSV (overrides config data source)")
	runCmd.Flags().String("symbol", "", "Stooq symbol to fetch (overrides config data source)")
	runCmd.Flags().Var(newDateValue(), "from", "Fetch start date (YYYY-MM-DD)")
	runCmd.Flags().Var(newDateValue(), "to", "Fetch end date (YYYY-MM-DD)")
	runCmd.Flags().Var(newDateValue(), "start", "Evaluation sub-range start (YYYY-MM-DD)")
	runCmd.Flags().Var(newDateValue(), "end", "Evaluation sub-range end (YYYY-MM-DD)")
	runCmd.Flags().Int("workers", -1, "Worker count (-1 config, 0 NumCPU)")
	runCmd.Flags().String("out", "", "Artifact directory (overrides config)")
	runCmd.Flags().String("progress", "auto", "Progress output mode (auto|plain|json)")
	runCmd.Flags().Bool("strict-stationarity", false, "Fail when the ADF test does not reject a unit root at 5%")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "One-window order-search diagnostic",
		Long:  "Print the full AIC candidate table and the winning order for a single window offset",
		RunE:  runSearch,
	}
	searchCmd.Flags().String("csv", "", "Local date,adj_close CSV (overrides config data source)")
	searchCmd.Flags().String("symbol", "", "Stooq symbol to fetch (overrides config data source)")
	searchCmd.Flags().Var(newDateValue(), "from", "Fetch start date (YYYY-MM-DD)")
	searchCmd.Flags().Var(newDateValue(), "to", "Fetch end date (YYYY-MM-DD)")
	searchCmd.Flags().Int("offset", 0, "Window start offset into the return series")

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Recompute curves and performance from a signals artifact",
		Long:  "Re-run the backtest accumulation and evaluation from an existing signals.csv without re-fitting",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().String("signals", "", "Path to a signals.csv artifact (required)")
	backtestCmd.Flags().String("csv", "", "Local date,adj_close CSV (overrides config data source)")
	backtestCmd.Flags().String("symbol", "", "Stooq symbol to fetch (overrides config data source)")
	backtestCmd.Flags().Var(newDateValue(), "from", "Fetch start date (YYYY-MM-DD)")
	backtestCmd.Flags().Var(newDateValue(), "to", "Fetch end date (YYYY-MM-DD)")
	backtestCmd.Flags().Var(newDateValue(), "start", "Evaluation sub-range start (YYYY-MM-DD)")
	backtestCmd.Flags().Var(newDateValue(), "end", "Evaluation sub-range end (YYYY-MM-DD)")
	_ = backtestCmd.MarkFlagRequired("signals")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve the read-only monitor endpoints",
		Long:  "Starts the HTTP server with /health, /metrics, and /version",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().String("host", "", "Bind host (overrides config)")
	monitorCmd.Flags().Int("port", 0, "Bind port (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
