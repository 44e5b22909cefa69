package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/quailyquaily/fetchguard/guard"
	"github.com/quailyquaily/fetchguard/internal/pathutil"
)

// optionsFromViper assembles fetch options from config. The returned
// cleanup closes any audit sink it opened.
func optionsFromViper(log *slog.Logger) (guard.Options, func()) {
	opts := guard.Options{
		Timeout:   viper.GetDuration("fetch.timeout"),
		UserAgent: strings.TrimSpace(viper.GetString("fetch.user_agent")),
		Logger:    log,
	}
	if viper.IsSet("fetch.allowlist") {
		opts.Allowlist = guard.ParseHostPatterns(viper.GetStringSlice("fetch.allowlist"))
	}

	sink := auditSinkFromViper(log)
	opts.Audit = sink
	cleanup := func() {
		if sink != nil {
			_ = sink.Close()
		}
	}
	return opts, cleanup
}

// auditSinkFromViper prefers the SQLite store over the JSONL file. A
// sink that fails to open downgrades to a warning; auditing must not
// break fetching.
func auditSinkFromViper(log *slog.Logger) guard.AuditSink {
	if dsn := strings.TrimSpace(viper.GetString("audit.sqlite_dsn")); dsn != "" {
		st, err := guard.NewSQLiteAuditStore(pathutil.ExpandHomePath(dsn))
		if err != nil {
			log.Warn("audit_store_error", "error", err.Error())
		} else {
			return st
		}
	}
	if path := strings.TrimSpace(viper.GetString("audit.jsonl_path")); path != "" {
		s, err := guard.NewJSONLAuditSink(pathutil.ExpandHomePath(path), viper.GetInt64("audit.rotate_max_bytes"))
		if err != nil {
			log.Warn("audit_sink_error", "error", err.Error())
		} else {
			return s
		}
	}
	return nil
}
