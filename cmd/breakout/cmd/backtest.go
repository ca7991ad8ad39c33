package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/capvalis/breakout/backtest"
	"github.com/capvalis/breakout/broker/fyers"
	"github.com/capvalis/breakout/config"
	"github.com/capvalis/breakout/journal"
	"github.com/capvalis/breakout/market"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a range-breakout backtest over a date window",
	Long: `Backtest fetches historical candles for the configured symbol,
detects the opening range each day, simulates breakout trades with
stop-loss, target and trailing-stop rules, and prints the aggregated
performance report.

Example:
  breakout backtest --symbol "NSE:NIFTYBANK-INDEX" --from 2024-01-01 --to 2024-12-31`,
	RunE: runBacktest,
}

var (
	btSymbol   string
	btFrom     string
	btTo       string
	btInterval int
	btDBPath   string
	btSize     float64
	btBalance  float64
	btDaily    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringVarP(&btSymbol, "symbol", "s", "", "symbol (overrides config)")
	f.StringVar(&btFrom, "from", "", "start date YYYY-MM-DD (required)")
	f.StringVar(&btTo, "to", "", "end date YYYY-MM-DD (required)")
	f.IntVarP(&btInterval, "interval", "i", 0, "candle interval in minutes (overrides config)")
	f.StringVarP(&btDBPath, "db", "d", "", "SQLite journal path (default from config; pass empty to disable)")
	f.Float64Var(&btSize, "size", 0, "position size (overrides config)")
	f.Float64VarP(&btBalance, "balance", "b", 100_000, "starting balance for drawdown accounting")
	f.BoolVar(&btDaily, "daily", false, "print the per-day metric table")

	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cmd.Flags(), cfg)

	start, err := time.Parse("2006-01-02", btFrom)
	if err != nil {
		return fmt.Errorf("bad --from %q: %w", btFrom, err)
	}
	end, err := time.Parse("2006-01-02", btTo)
	if err != nil {
		return fmt.Errorf("bad --to %q: %w", btTo, err)
	}

	clientID, token, err := brokerCredentials()
	if err != nil {
		return err
	}

	client := fyers.NewClient(clientID, token, log)
	if cfg.Broker.APIURL != "" {
		client.APIURL = cfg.Broker.APIURL
	}
	if cfg.Broker.DataURL != "" {
		client.DataURL = cfg.Broker.DataURL
	}

	loc, err := time.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		loc = market.ExchangeLocation()
	}
	fetcher := market.NewFetcher(client, loc, log)

	runner := &backtest.Runner{
		Fetcher:      fetcher,
		Params:       cfg.Params(),
		Symbol:       cfg.Strategy.Symbol,
		Interval:     cfg.Strategy.Interval,
		PositionSize: cfg.Strategy.PositionSize,
		StartBalance: btBalance,
		Log:          log,
	}

	if dbPath := journalPath(cmd.Flags().Changed("db"), btDBPath, cfg); dbPath != "" {
		j, err := journal.NewSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		runner.Journal = j
	}

	res, err := runner.Run(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	backtest.PrintResult(os.Stdout, res)
	if btDaily {
		backtest.PrintDaily(os.Stdout, res.Daily)
	}

	return nil
}

// journalPath resolves where to journal: an explicit --db wins, including
// an explicit empty value to disable journaling; otherwise the config path.
func journalPath(flagSet bool, flagValue string, cfg *config.Config) string {
	if flagSet {
		return flagValue
	}
	return cfg.Journal.DBPath
}

func applyOverrides(f *pflag.FlagSet, cfg *config.Config) {
	if f.Changed("symbol") {
		cfg.Strategy.Symbol = btSymbol
	}
	if f.Changed("interval") {
		cfg.Strategy.Interval = btInterval
	}
	if f.Changed("size") {
		cfg.Strategy.PositionSize = btSize
	}
}
