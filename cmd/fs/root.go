package fs

import (
	"github.com/dfslabs/dfs/cmd/util"
	"github.com/dfslabs/dfs/lib/meta"
	"github.com/spf13/cobra"
)

var (
	metaClient meta.IMetaService

	// FsCommands represents the filesystem command group
	FsCommands = &cobra.Command{
		Use:               "fs",
		Short:             "Perform filesystem metadata operations",
		PersistentPreRunE: setupMetaClient,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if metaClient != nil {
				return metaClient.Close()
			}
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the fs command
	util.SetupRPCClientFlags(FsCommands)

	// Add subcommands
	FsCommands.AddCommand(mkdirCmd)
	FsCommands.AddCommand(touchCmd)
	FsCommands.AddCommand(lsCmd)
	FsCommands.AddCommand(statCmd)
	FsCommands.AddCommand(locateCmd)
	FsCommands.AddCommand(mvCmd)
	FsCommands.AddCommand(rmCmd)
	FsCommands.AddCommand(chmodCmd)
	FsCommands.AddCommand(chownCmd)
	FsCommands.AddCommand(truncateCmd)
	FsCommands.AddCommand(dfCmd)
	FsCommands.AddCommand(perfTestCmd)
}

// setupMetaClient initializes the HA metadata client
func setupMetaClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	metaClient, err = util.NewMetaClient()
	return err
}
