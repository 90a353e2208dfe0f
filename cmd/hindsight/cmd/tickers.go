package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/market"
)

var CMDTickers = &cobra.Command{
	Use:   "tickers",
	Short: "Manage the ticker book",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBook()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tNAME")
		for _, name := range book.Names() {
			fmt.Fprintf(w, "%s\t%s\n", name, book.Tickers[name])
		}
		return w.Flush()
	},
}

var CMDTickersAdd = &cobra.Command{
	Use:   "add TICKER NAME",
	Short: "Add a ticker to the book",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBook()
		if err != nil {
			return err
		}
		description := args[1]
		for _, extra := range args[2:] {
			description += " " + extra
		}
		book.Add(args[0], description)
		return book.Save()
	},
}

var CMDTickersRemove = &cobra.Command{
	Use:   "remove TICKER",
	Short: "Remove a ticker from the book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBook()
		if err != nil {
			return err
		}
		if !book.Remove(args[0]) {
			return fmt.Errorf("ticker %q not in book", args[0])
		}
		return book.Save()
	},
}

var CMDTickersReset = &cobra.Command{
	Use:   "reset",
	Short: "Reset the book to the default index set",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := loadBook()
		if err != nil {
			return err
		}
		book.Reset()
		return book.Save()
	},
}

func init() {
	CMDTickers.AddCommand(CMDTickersAdd)
	CMDTickers.AddCommand(CMDTickersRemove)
	CMDTickers.AddCommand(CMDTickersReset)
}

func loadBook() (*market.TickerBook, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return market.LoadTickerBook(store.TickerBookPath())
}
