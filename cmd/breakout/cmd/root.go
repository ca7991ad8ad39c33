package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/capvalis/breakout/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "breakout",
	Short: "Intraday opening-range breakout strategy engine",
	Long: `Breakout backtests and trades an intraday opening-range breakout
strategy on index/stock candles.

It provides tools for:
  - Backtesting the range-breakout rules over historical candle data
  - Replaying skipped days to report what-if results
  - Journaling trades and daily metrics to SQLite
  - Fetching and normalizing broker candle data to CSV
  - Running the live signal loop against a broker account`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Broker credentials live in the environment; .env is optional.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func brokerCredentials() (clientID, token string, err error) {
	clientID = os.Getenv("FYERS_CLIENT_ID")
	token = os.Getenv("FYERS_ACCESS_TOKEN")
	if clientID == "" || token == "" {
		return "", "", fmt.Errorf("FYERS_CLIENT_ID and FYERS_ACCESS_TOKEN must be set")
	}
	return clientID, token, nil
}
