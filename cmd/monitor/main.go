package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"walletMonitor/internal/config"
	"walletMonitor/internal/enrich"
	"walletMonitor/internal/httpclient"
)

func main() {
	root := &cobra.Command{
		Use:          "monitor",
		Short:        "Solana wallet swap monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and alert pipeline",
		RunE:  runServe,
	}
	addStoreFlags(serveCmd.Flags())
	addPipelineFlags(serveCmd.Flags())
	serveCmd.Flags().String("listen", ":3000", "HTTP listen address")
	serveCmd.Flags().String("webhook-secret", "", "bearer token expected on webhook requests")
	serveCmd.Flags().String("solana-rpc", "", "Solana JSON-RPC URL for deep transaction parsing")
	serveCmd.Flags().String("journal-dir", "", "directory for daily JSONL journals of webhook outcomes")
	serveCmd.Flags().Int("workers", 4, "background workers")
	serveCmd.Flags().Duration("task-timeout", 2*time.Minute, "timeout of one background task")
	root.AddCommand(serveCmd)

	checkCmd := &cobra.Command{
		Use:   "check <token>",
		Short: "Evaluate and send an alert for a token, bypassing consensus",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	addStoreFlags(checkCmd.Flags())
	addPipelineFlags(checkCmd.Flags())
	root.AddCommand(checkCmd)

	parseCmd := &cobra.Command{
		Use:   "parse <signature>",
		Short: "Deep-parse a transaction into a swap",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	parseCmd.Flags().String("solana-rpc", "", "Solana JSON-RPC URL")
	addHTTPFlags(parseCmd.Flags())
	parseCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(parseCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(fs *pflag.FlagSet) {
	fs.String("store", config.StorePostgres, "store backend (postgres, memory)")
	fs.String("pg-dsn", "", "Postgres DSN")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addHTTPFlags(fs *pflag.FlagSet) {
	fs.Duration("http-timeout", 30*time.Second, "outbound HTTP timeout")
	fs.Int("http-max-retries", httpclient.DefaultMaxRetries, "outbound HTTP retries after the first attempt")
	fs.Duration("http-max-backoff", 10*time.Second, "maximum wait between retries")
}

func addPipelineFlags(fs *pflag.FlagSet) {
	addHTTPFlags(fs)
	fs.String("telegram-token", "", "Telegram bot token")
	fs.String("telegram-channel-id", "", "Telegram chat id")
	fs.String("wecom-key", "", "WeCom group bot key")
	fs.String("dexscreener-url", enrich.DefaultDexScreenerURL, "DexScreener API base URL")
	fs.String("rugcheck-url", enrich.DefaultRugCheckURL, "RugCheck API base URL")
	fs.Duration("window", 6*time.Hour, "consensus window")
	fs.Float64("min-market-cap", 100_000, "minimum market cap in USD")
	fs.Duration("max-age", 7*24*time.Hour, "maximum pair age")
	fs.String("sentinel-wallet", "", "wallet whose buys always count as consensus")
	fs.StringSlice("excluded-sources", config.DefaultExcludedSources, "event sources to drop")
	fs.StringSlice("allow-programs", config.DefaultAllowPrograms, "program ids a transfer must touch")
	fs.StringSlice("deny-programs", config.DefaultDenyPrograms, "program ids a transfer must not touch")
	fs.StringSlice("base-tokens", config.DefaultBaseTokens, "mints never treated as a consensus target")
	fs.Duration("queue-interval", time.Second, "request queue drain interval")
	fs.Int("queue-batch-size", 5, "requests executed per drain")
	fs.Duration("cache-ttl", 30*time.Second, "enrichment cache TTL")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
