package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/ledgerwork/client"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

var serverURL string

// These commands talk to a running ledgerworkd through its admin API.
var (
	nodesCmd = &cobra.Command{
		Use:   "nodes",
		Short: "Manage ledger nodes on a running instance",
	}

	nodesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List ledger nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			ledger, _ := cmd.Flags().GetString("ledger")
			limit, _ := cmd.Flags().GetInt("limit")
			deleted, _ := cmd.Flags().GetBool("include-deleted")

			nodes, err := c.ListNodes(cmd.Context(), node.ListOpts{
				Ledger:         ledger,
				Limit:          limit,
				IncludeDeleted: deleted,
			})
			if err != nil {
				return err
			}
			return printJSON(nodes)
		},
	}

	nodesCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Register a ledger node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			var req client.CreateNodeRequest
			req.Ledger, _ = cmd.Flags().GetString("ledger")
			req.Consensus, _ = cmd.Flags().GetString("consensus")
			req.Owner, _ = cmd.Flags().GetString("owner")
			req.Storage, _ = cmd.Flags().GetString("storage")

			n, err := c.CreateNode(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(n)
		},
	}

	nodesDeleteCmd = &cobra.Command{
		Use:   "delete NODE_ID",
		Short: "Tombstone a ledger node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := id.ParseNodeID(args[0])
			if err != nil {
				return err
			}
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			if err := c.DeleteNode(cmd.Context(), nodeID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", nodeID)
			return nil
		},
	}

	passCmd = &cobra.Command{
		Use:   "pass",
		Short: "Run one scheduling pass on a running instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			rep, err := c.RunPass(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(rep)
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show scheduling statistics of a running instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			st, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{nodesCmd, passCmd, statsCmd} {
		c.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "admin API base URL")
	}

	nodesListCmd.Flags().String("ledger", "", "only nodes of this ledger")
	nodesListCmd.Flags().Int("limit", 0, "page size (server default when zero)")
	nodesListCmd.Flags().Bool("include-deleted", false, "include tombstoned nodes")

	nodesCreateCmd.Flags().String("ledger", "", "ledger configuration id (required)")
	nodesCreateCmd.Flags().String("consensus", "", "consensus plugin name (required)")
	nodesCreateCmd.Flags().String("owner", "", "owner identity")
	nodesCreateCmd.Flags().String("storage", "", "storage kind")
	_ = nodesCreateCmd.MarkFlagRequired("ledger")
	_ = nodesCreateCmd.MarkFlagRequired("consensus")

	nodesCmd.AddCommand(nodesListCmd, nodesCreateCmd, nodesDeleteCmd)
	rootCmd.AddCommand(nodesCmd, passCmd, statsCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
