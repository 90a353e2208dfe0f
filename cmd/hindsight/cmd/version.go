package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var CMDVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the hindsight version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("hindsight", Version)
	},
}
