package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print every block held by the node.",
	Args:  cobra.NoArgs,
	RunE:  chainRun,
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the latest block held by the node.",
	Args:  cobra.NoArgs,
	RunE:  latestRun,
}

var mineCmd = &cobra.Command{
	Use:   "mine <data>",
	Short: "Mine a block carrying the data and announce it.",
	Args:  cobra.ExactArgs(1),
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(mineCmd)
}

func chainRun(cmd *cobra.Command, args []string) error {
	var blocks []chain.BlockData
	if err := send(http.MethodGet, "/v1/blocks", nil, &blocks); err != nil {
		return err
	}

	for _, bd := range blocks {
		printBlock(cmd, bd)
	}

	return nil
}

func latestRun(cmd *cobra.Command, args []string) error {
	var bd chain.BlockData
	if err := send(http.MethodGet, "/v1/blocks/latest", nil, &bd); err != nil {
		return err
	}

	printBlock(cmd, bd)
	return nil
}

func mineRun(cmd *cobra.Command, args []string) error {
	req := struct {
		Data string `json:"data"`
	}{
		Data: args[0],
	}

	var bd chain.BlockData
	if err := send(http.MethodPost, "/v1/blocks/mine", req, &bd); err != nil {
		return err
	}

	printBlock(cmd, bd)
	return nil
}

func printBlock(cmd *cobra.Command, bd chain.BlockData) {
	blk, err := chain.ToBlock(bd)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "malformed block: %s\n", err)
		return
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", blk.Index, blk.Hash, chain.FormatTimeStamp(blk.TimeStamp), blk.Data)
}
