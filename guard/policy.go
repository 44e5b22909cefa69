package guard

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quailyquaily/fetchguard/internal/pathutil"
)

// Policy is a YAML policy document for embedders that configure the
// guard from a file rather than through viper:
//
//	allowlist:
//	  - "*.example.com"
//	  - docs.internal.example
//	timeout_seconds: 10
//	user_agent: kb-ingest/2.1
//	audit:
//	  jsonl_path: ~/.fetchguard/audit.jsonl
//	  rotate_max_bytes: 10485760
//	  sqlite_dsn: ~/.fetchguard/audit.db
type Policy struct {
	Allowlist      []string `yaml:"allowlist"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	UserAgent      string   `yaml:"user_agent"`

	Audit PolicyAudit `yaml:"audit"`
}

type PolicyAudit struct {
	JSONLPath      string `yaml:"jsonl_path"`
	RotateMaxBytes int64  `yaml:"rotate_max_bytes"`
	SQLiteDSN      string `yaml:"sqlite_dsn"`
}

func LoadPolicy(path string) (*Policy, error) {
	b, err := os.ReadFile(pathutil.ExpandHomePath(path))
	if err != nil {
		return nil, err
	}
	return ParsePolicy(b)
}

func ParsePolicy(b []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if p.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid policy: negative timeout_seconds")
	}
	return &p, nil
}

// Options builds fetch Options from the policy. The audit sink, if any,
// is returned via AuditSink so the caller controls its lifetime.
func (p *Policy) Options() Options {
	opts := Options{
		UserAgent: p.UserAgent,
	}
	if p.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	if p.Allowlist != nil {
		opts.Allowlist = ParseHostPatterns(p.Allowlist)
	}
	return opts
}

// AuditSink opens the sink the policy names: SQLite when a DSN is set,
// otherwise the JSONL file, otherwise nil.
func (p *Policy) AuditSink() (AuditSink, error) {
	if dsn := pathutil.ExpandHomePath(p.Audit.SQLiteDSN); dsn != "" {
		return NewSQLiteAuditStore(dsn)
	}
	if path := pathutil.ExpandHomePath(p.Audit.JSONLPath); path != "" {
		return NewJSONLAuditSink(path, p.Audit.RotateMaxBytes)
	}
	return nil, nil
}
