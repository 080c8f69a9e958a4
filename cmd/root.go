package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ValentinKolb/treekv/cmd/client"
	"github.com/ValentinKolb/treekv/cmd/serve"
)

const Version = "0.1.0"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "treekv",
		Short: "in-memory, multi-client key/value store",
		Long: fmt.Sprintf(`treekv (v%s)

An in-memory key/value store serving a raw-text TCP protocol to many
concurrent clients, with an operator console for pausing command
processing, cancelling all clients, and taking on-demand snapshots.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of treekv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("treekv v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
