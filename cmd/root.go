package cmd

import (
	"fmt"
	"os"

	"github.com/dfslabs/dfs/cmd/fs"
	"github.com/dfslabs/dfs/cmd/serve"
	"github.com/dfslabs/dfs/cmd/token"
	"github.com/dfslabs/dfs/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dfs",
		Short: "distributed filesystem metadata client and server",
		Long: fmt.Sprintf(`dFS (v%s)

A distributed filesystem metadata service with client-side high
availability: clients hold connections to every configured metadata
instance and transparently fail over when the active one steps down.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dFS",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dFS v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(fs.FsCommands)
	RootCmd.AddCommand(token.TokenCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
