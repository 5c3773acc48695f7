// Package cmdlog persists every lifecycle command handled by the trader,
// including rejected ones, into a standalone sqlite file for audit and replay.
package cmdlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record 一条命令审计记录。
type Record struct {
	ID         int64     `json:"id"`
	CommandID  string    `json:"commandId"`
	Type       string    `json:"type"`
	PlanID     int64     `json:"planId"`
	Payload    string    `json:"payload"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Store 基于 database/sql 的命令日志。
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("command log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS command_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command_id TEXT NOT NULL,
			type TEXT NOT NULL,
			plan_id INTEGER NOT NULL DEFAULT 0,
			payload TEXT,
			outcome TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_command_log_plan ON command_log(plan_id, id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("command log schema: %w", err)
		}
	}
	return nil
}

func (s *Store) handle() *sql.DB {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// Append 写入一条记录。
func (s *Store) Append(ctx context.Context, rec Record) error {
	db := s.handle()
	if db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO command_log (command_id, type, plan_id, payload, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CommandID, rec.Type, rec.PlanID, rec.Payload, rec.Outcome, rec.Error, rec.DurationMs, rec.CreatedAt.UnixMilli(),
	)
	return err
}

// ListByPlan 按写入顺序返回某个计划的命令；planID 为 0 时返回全部。
func (s *Store) ListByPlan(ctx context.Context, planID int64, limit int) ([]Record, error) {
	db := s.handle()
	if db == nil {
		return nil, fmt.Errorf("command log 未初始化")
	}
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT id, command_id, type, plan_id, payload, outcome, error, duration_ms, created_at FROM command_log`
	args := []any{}
	if planID > 0 {
		query += ` WHERE plan_id = ?`
		args = append(args, planID)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			rec      Record
			payload  sql.NullString
			errText  sql.NullString
			createdM int64
		)
		if err := rows.Scan(&rec.ID, &rec.CommandID, &rec.Type, &rec.PlanID, &payload, &rec.Outcome, &errText, &rec.DurationMs, &createdM); err != nil {
			return nil, err
		}
		rec.Payload = payload.String
		rec.Error = errText.String
		rec.CreatedAt = time.UnixMilli(createdM).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
