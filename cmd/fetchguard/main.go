package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "fetchguard",
		Short: "SSRF-guarded outbound HTTP fetcher",
		Long: "fetchguard mediates outbound HTTP(S) requests to untrusted URLs,\n" +
			"re-validating every redirect hop against protocol, allowlist and\n" +
			"private-IP checks before the network is touched.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./config.yaml, ~/.fetchguard/config.yaml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(fetchCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(auditCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig() error {
	viper.SetDefault("fetch.timeout", 30*time.Second)
	viper.SetDefault("fetch.max_bytes", int64(512*1024))
	viper.SetDefault("audit.rotate_max_bytes", int64(100*1024*1024))

	if flagConfig != "" {
		viper.SetConfigFile(flagConfig)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.fetchguard")
	}
	if err := viper.ReadInConfig(); err != nil {
		if flagConfig != "" {
			return err
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

func newLogger() *slog.Logger {
	lvl := slog.LevelInfo
	if flagVerbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
