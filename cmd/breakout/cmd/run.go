package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capvalis/breakout/broker/fyers"
	"github.com/capvalis/breakout/engine"
	"github.com/capvalis/breakout/market"
	"github.com/capvalis/breakout/notify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live signal loop against the broker",
	Long: `Run starts the live engine: it periodically re-runs the breakout
strategy over a trailing candle window, places market orders for fresh
signals and reports status through the configured notifier. Stop with
Ctrl-C; open positions are flattened on shutdown.`,
	RunE: runLive,
}

var (
	runQty  int
	runPoll time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.IntVarP(&runQty, "qty", "q", 0, "order quantity per signal (default: config position size)")
	f.DurationVar(&runPoll, "poll", 5*time.Second, "signal loop interval")
}

func runLive(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
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

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.Enabled {
		notifier = notify.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, log)
	}

	qty := runQty
	if qty <= 0 {
		qty = int(cfg.Strategy.PositionSize)
	}

	eng := engine.New(fetcher, client, notifier, engine.Options{
		Symbol:      cfg.Strategy.Symbol,
		Interval:    cfg.Strategy.Interval,
		Poll:        runPoll,
		Qty:         qty,
		Equity:      cfg.Strategy.Capital,
		RiskPercent: cfg.Strategy.RiskPercent,
		Params:      cfg.Params(),
	}, log)

	fmt.Printf("Running live engine for %s (interval %dm)\n", cfg.Strategy.Symbol, cfg.Strategy.Interval)

	return eng.Run(cmd.Context())
}
