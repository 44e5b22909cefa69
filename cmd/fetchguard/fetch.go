package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/fetchguard/guard"
	"github.com/quailyquaily/fetchguard/internal/clifmt"
)

func fetchCmd() *cobra.Command {
	var (
		timeout    time.Duration
		headers    []string
		allow      []string
		policyPath string
		maxBytes   int64
	)
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Perform a guarded fetch and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			opts, cleanup := optionsFromViper(log)
			defer cleanup()

			if policyPath != "" {
				p, err := guard.LoadPolicy(policyPath)
				if err != nil {
					return err
				}
				popts := p.Options()
				if popts.Timeout > 0 {
					opts.Timeout = popts.Timeout
				}
				if popts.UserAgent != "" {
					opts.UserAgent = popts.UserAgent
				}
				if popts.Allowlist != nil {
					opts.Allowlist = popts.Allowlist
				}
				if opts.Audit == nil {
					sink, err := p.AuditSink()
					if err != nil {
						log.Warn("policy_audit_sink_error", "error", err.Error())
					} else if sink != nil {
						opts.Audit = sink
						defer func() { _ = sink.Close() }()
					}
				}
			}
			if timeout > 0 {
				opts.Timeout = timeout
			}
			if len(allow) > 0 {
				opts.Allowlist = guard.ParseHostPatterns(allow)
			}
			if len(headers) > 0 {
				opts.Headers = parseHeaderFlags(headers)
			}

			res, err := guard.Fetch(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			defer res.Response.Body.Close()

			limit := maxBytes
			if limit <= 0 {
				limit = viper.GetInt64("fetch.max_bytes")
			}
			body, truncated, err := readLimited(res.Response.Body, limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stderr, clifmt.Headerf("fetched %s", res.FinalURL))
			fmt.Fprintf(os.Stderr, "%s %d\n", clifmt.Key("status:"), res.Response.StatusCode)
			fmt.Fprintf(os.Stderr, "%s %d\n", clifmt.Key("redirects:"), res.Redirects)
			if ct := res.Response.Header.Get("Content-Type"); ct != "" {
				fmt.Fprintf(os.Stderr, "%s %s\n", clifmt.Key("content_type:"), clifmt.Dim(ct))
			}
			if truncated {
				fmt.Fprintln(os.Stderr, clifmt.Warn(fmt.Sprintf("body truncated to %d bytes", limit)))
			}
			_, _ = os.Stdout.Write(body)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-hop timeout (default 30s)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, `extra request header ("Key: Value", repeatable)`)
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "allowlist host pattern (repeatable)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "YAML policy file")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to print")
	return cmd
}

func parseHeaderFlags(raw []string) map[string]string {
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	if maxBytes <= 0 {
		maxBytes = 512 * 1024
	}
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}
