package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/yahoo"
)

// newYahooClient applies the fetch config on top of the client
// defaults.
func newYahooClient() *yahoo.Client {
	client := yahoo.NewClient(log)
	if cfg.Fetch.BaseURL != "" {
		client.BaseURL = cfg.Fetch.BaseURL
	}
	if cfg.Fetch.MaxTries > 0 {
		client.MaxTries = uint(cfg.Fetch.MaxTries)
	}
	return client
}

var CMDFetch = &cobra.Command{
	Use:   "fetch [TICKER...]",
	Short: "Download price history for tickers, or sync the whole book",
	Long: `Fetch downloads full daily price history for the named tickers and
stores it as CSV. With no arguments it syncs every ticker in the book
and prunes datasets for tickers no longer listed.`,
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

		if len(args) == 0 {
			return syncer.Sync(cmd.Context())
		}
		for _, ticker := range args {
			if err := syncer.FetchLatest(cmd.Context(), ticker); err != nil {
				return err
			}
		}
		return nil
	},
}
