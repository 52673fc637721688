package store

import (
	"database/sql"
	"fmt"

	"github.com/orcakit/core/internal/registry"
)

// SaveAgent inserts or replaces an agent's durable row.
func (d *DB) SaveAgent(a *registry.Agent) error {
	_, err := d.conn.Exec(`
		INSERT INTO agents (id, name, status, role, model, pid, tasks_completed, tasks_failed, total_duration_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, status=excluded.status, role=excluded.role, model=excluded.model,
			pid=excluded.pid, tasks_completed=excluded.tasks_completed, tasks_failed=excluded.tasks_failed,
			total_duration_ms=excluded.total_duration_ms, updated_at=excluded.updated_at
	`, a.ID, a.Name, string(a.Status), string(a.Role), string(a.Model), nullInt(a.PID),
		a.TasksCompleted, a.TasksFailed, a.TotalDurationMs, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return wrapIO("SaveAgent", err)
	}
	return nil
}

// GetAgent fetches a single agent row by id.
func (d *DB) GetAgent(id int) (*registry.Agent, error) {
	row := d.conn.QueryRow(`
		SELECT id, name, status, role, model, pid, tasks_completed, tasks_failed, total_duration_ms, created_at, updated_at
		FROM agents WHERE id = ?
	`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, newNotFound("GetAgent", fmt.Sprintf("agent %d not found", id))
	}
	if err != nil {
		return nil, wrapIO("GetAgent", err)
	}
	return a, nil
}

// ListAgents returns every agent row.
func (d *DB) ListAgents() ([]*registry.Agent, error) {
	rows, err := d.conn.Query(`
		SELECT id, name, status, role, model, pid, tasks_completed, tasks_failed, total_duration_ms, created_at, updated_at
		FROM agents
	`)
	if err != nil {
		return nil, wrapIO("ListAgents", err)
	}
	defer rows.Close()

	var result []*registry.Agent
	for rows.Next() {
		a, err := scanAgentRows(rows)
		if err != nil {
			return nil, wrapIO("ListAgents.scan", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row *sql.Row) (*registry.Agent, error) {
	return scanAgentCommon(row)
}

func scanAgentRows(rows *sql.Rows) (*registry.Agent, error) {
	return scanAgentCommon(rows)
}

func scanAgentCommon(s scanner) (*registry.Agent, error) {
	var a registry.Agent
	var status, role, model string
	var pid sql.NullInt64

	if err := s.Scan(&a.ID, &a.Name, &status, &role, &model, &pid,
		&a.TasksCompleted, &a.TasksFailed, &a.TotalDurationMs, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = registry.Status(status)
	a.Role = registry.Role(role)
	a.Model = registry.ModelTier(model)
	if pid.Valid {
		a.PID = int(pid.Int64)
	}
	return &a, nil
}
