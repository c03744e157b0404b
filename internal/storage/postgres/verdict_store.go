// Package postgres keeps the verdict history in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "scan_verdicts"

// Config controls the Postgres connection pool used for verdict rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// VerdictStore implements autoarchive.VerdictRecorder.
type VerdictStore struct {
	pool  execCloser
	table string
}

// NewVerdictStore connects to Postgres using cfg.
func NewVerdictStore(ctx context.Context, cfg Config) (*VerdictStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &VerdictStore{pool: pool, table: table}, nil
}

// NewVerdictStoreWithPool constructs a store from an existing pool.
func NewVerdictStoreWithPool(pool execCloser, table string) (*VerdictStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &VerdictStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *VerdictStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the verdict table when it does not exist.
func (s *VerdictStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	scan_id TEXT NOT NULL,
	url TEXT NOT NULL,
	would_archive BOOLEAN NOT NULL,
	reason TEXT NOT NULL,
	found_indicators JSONB NOT NULL,
	normal_scan_would_occur BOOLEAN NOT NULL,
	is_homepage BOOLEAN NOT NULL,
	global_scanning_enabled BOOLEAN NOT NULL,
	path_matches BOOLEAN NOT NULL,
	evaluated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create verdict table: %w", err)
	}
	return nil
}

// RecordVerdict inserts one verdict row.
func (s *VerdictStore) RecordVerdict(ctx context.Context, scanID string, verdict autoarchive.Verdict, evaluatedAt time.Time) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("verdict store is not configured")
	}
	if scanID == "" {
		return fmt.Errorf("scan id is required")
	}
	indicators := verdict.FoundIndicators
	if indicators == nil {
		indicators = []string{}
	}
	indicatorsJSON, err := json.Marshal(indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	scan_id,
	url,
	would_archive,
	reason,
	found_indicators,
	normal_scan_would_occur,
	is_homepage,
	global_scanning_enabled,
	path_matches,
	evaluated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	args := []any{
		scanID,
		verdict.URL,
		verdict.WouldArchive,
		verdict.Reason,
		indicatorsJSON,
		verdict.NormalScanWouldOccur,
		verdict.IsHomepage,
		verdict.GlobalScanningEnabled,
		verdict.PathMatches,
		evaluatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}
