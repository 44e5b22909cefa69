package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/fetchguard/guard"
	"github.com/quailyquaily/fetchguard/internal/clifmt"
	"github.com/quailyquaily/fetchguard/internal/pathutil"
)

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent fetch audit events from the SQLite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := strings.TrimSpace(viper.GetString("audit.sqlite_dsn"))
			if dsn == "" {
				return fmt.Errorf("audit.sqlite_dsn is not configured")
			}
			st, err := guard.NewSQLiteAuditStore(pathutil.ExpandHomePath(dsn))
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range events {
				line := fmt.Sprintf("%s %s hop=%d %-8s %s",
					e.Timestamp.Format(time.RFC3339), e.FetchID, e.Hop, e.Decision, e.URL)
				if e.Reason != "" {
					line += " " + clifmt.Dim(e.Reason)
				}
				if e.Decision == guard.DecisionDeny {
					fmt.Println(clifmt.Warn(line))
				} else {
					fmt.Println(line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of events to show")
	return cmd
}
