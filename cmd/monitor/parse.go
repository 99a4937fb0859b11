package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"walletMonitor/internal/solana"
)

func runParse(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.SolanaRPC == "" {
		return fmt.Errorf("solana-rpc is required")
	}

	ctx := context.Background()
	client, err := solana.NewClient(ctx, cfg.SolanaRPC, newHTTPClient(cfg, logger).HTTPClient())
	if err != nil {
		return err
	}
	defer client.Close()

	swap, err := solana.NewParser(client, logger.Named("solana")).Parse(ctx, args[0])
	if err != nil {
		return err
	}
	if swap == nil {
		return fmt.Errorf("no swap found in %s", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(swap)
}
