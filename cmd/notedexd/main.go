package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "notedexd",
		Short: "Notedex daemon and CLI",
		Long:  "Notedex daemon for serving document search and running ingestion passes",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.SyncCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
