package token

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dfslabs/dfs/cmd/util"
	"github.com/dfslabs/dfs/lib/meta"
	"github.com/spf13/cobra"
)

var (
	metaClient meta.IMetaService

	// TokenCommands represents the delegation token command group
	TokenCommands = &cobra.Command{
		Use:               "token",
		Short:             "Manage delegation tokens",
		PersistentPreRunE: setupTokenClient,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if metaClient != nil {
				return metaClient.Close()
			}
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [renewer]",
		Short: "Issues a new delegation token and prints it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := metaClient.GetDelegationToken(args[0])
			if err != nil {
				return err
			}
			out, err := json.Marshal(token)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	renewCmd = &cobra.Command{
		Use:   "renew [token-json]",
		Short: "Renews a delegation token and prints the new expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := parseToken(args[0])
			if err != nil {
				return err
			}
			expiry, err := metaClient.RenewDelegationToken(token)
			if err != nil {
				return err
			}
			fmt.Printf("token renewed, expires %s\n", time.UnixMilli(expiry).Format(time.RFC3339))
			return nil
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel [token-json]",
		Short: "Cancels a delegation token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := parseToken(args[0])
			if err != nil {
				return err
			}
			if err := metaClient.CancelDelegationToken(token); err != nil {
				return err
			}
			fmt.Println("token cancelled")
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the token command
	util.SetupRPCClientFlags(TokenCommands)

	// Add subcommands
	TokenCommands.AddCommand(getCmd)
	TokenCommands.AddCommand(renewCmd)
	TokenCommands.AddCommand(cancelCmd)
}

// parseToken decodes a token printed by `dfs token get`
func parseToken(arg string) (*meta.Token, error) {
	var token meta.Token
	if err := json.Unmarshal([]byte(arg), &token); err != nil {
		return nil, fmt.Errorf("invalid token (expected the JSON printed by 'dfs token get'): %w", err)
	}
	return &token, nil
}

// setupTokenClient initializes the HA metadata client
func setupTokenClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	metaClient, err = util.NewMetaClient()
	return err
}
