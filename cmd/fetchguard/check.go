package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/fetchguard/guard"
	"github.com/quailyquaily/fetchguard/internal/clifmt"
)

func checkCmd() *cobra.Command {
	var allow []string
	cmd := &cobra.Command{
		Use:   "check URL",
		Short: "Validate a URL without fetching it (DNS is still consulted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patterns []guard.HostPattern
			if viper.IsSet("fetch.allowlist") {
				patterns = guard.ParseHostPatterns(viper.GetStringSlice("fetch.allowlist"))
			}
			if len(allow) > 0 {
				patterns = guard.ParseHostPatterns(allow)
			}
			if patterns == nil {
				patterns = guard.DefaultAllowlist()
			}

			err := guard.ValidateURL(cmd.Context(), args[0], patterns, nil)
			if err != nil {
				var ue *guard.UnsafeURLError
				if errors.As(err, &ue) {
					fmt.Fprintln(os.Stdout, clifmt.Warn("deny: "+ue.Reason))
				}
				return err
			}
			fmt.Fprintln(os.Stdout, clifmt.Success("allow: "+args[0]))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "allowlist host pattern (repeatable)")
	return cmd
}
