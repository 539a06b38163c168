package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Print the hosts of the node's live peers.",
	Args:  cobra.NoArgs,
	RunE:  peersRun,
}

var connectCmd = &cobra.Command{
	Use:   "connect <address>",
	Short: "Ask the node to dial a peer at a websocket address.",
	Args:  cobra.ExactArgs(1),
	RunE:  connectRun,
}

func init() {
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(connectCmd)
}

func peersRun(cmd *cobra.Command, args []string) error {
	var hosts []string
	if err := send(http.MethodGet, "/v1/peers", nil, &hosts); err != nil {
		return err
	}

	for _, host := range hosts {
		fmt.Fprintln(cmd.OutOrStdout(), host)
	}

	return nil
}

func connectRun(cmd *cobra.Command, args []string) error {
	req := struct {
		Peer string `json:"peer"`
	}{
		Peer: args[0],
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := send(http.MethodPost, "/v1/peers", req, &resp); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.Status, args[0])
	return nil
}
