package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/sched"
	"github.com/quantlab/hindsight/yahoo"
)

var watchNow bool

var CMDWatch = &cobra.Command{
	Use:   "watch",
	Short: "Keep the data store fresh on the configured schedule",
	Long: `Watch runs in the foreground and syncs the whole ticker book on the
cron schedule from the config, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		book, err := market.LoadTickerBook(store.TickerBookPath())
		if err != nil {
			return err
		}

		syncer := yahoo.NewSyncer(newYahooClient(), store, book, log)

		if cfg.Fetch.Cron == "" {
			return fmt.Errorf("no fetch cron schedule configured")
		}
		refresher, err := sched.NewRefresher(cfg.Fetch.Cron, syncer.Sync, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if watchNow {
			if err := refresher.RunNow(ctx); err != nil {
				return err
			}
		}

		refresher.Start()
		fmt.Printf("watching %d tickers on schedule %q, ctrl-c to stop\n",
			len(book.Names()), cfg.Fetch.Cron)
		<-ctx.Done()
		refresher.Stop()
		return nil
	},
}

func init() {
	CMDWatch.Flags().BoolVar(&watchNow, "now", false, "sync once immediately before scheduling")
}
