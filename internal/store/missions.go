package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orcakit/core/internal/mission"
)

// SaveMission inserts or replaces a mission row in full. Called by the
// queue on enqueue and on every status transition where the full record
// (not just status) needs to be durable.
func (d *DB) SaveMission(m *mission.Mission) error {
	dependsOn, err := json.Marshal(m.DependsOn)
	if err != nil {
		return fmt.Errorf("store: marshal dependsOn: %w", err)
	}
	var errJSON, resultJSON []byte
	if m.Error != nil {
		if errJSON, err = json.Marshal(m.Error); err != nil {
			return fmt.Errorf("store: marshal error: %w", err)
		}
	}
	if m.Result != nil {
		if resultJSON, err = json.Marshal(m.Result); err != nil {
			return fmt.Errorf("store: marshal result: %w", err)
		}
	}

	_, err = d.conn.Exec(`
		INSERT INTO missions (
			id, prompt, context, priority, type, status, timeout_ms, max_retries,
			retry_count, retry_delay_ms, depends_on, assigned_to, error, result,
			created_at, started_at, completed_at, execution_id, parent_mission_id, unified_task_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt=excluded.prompt, context=excluded.context, priority=excluded.priority,
			type=excluded.type, status=excluded.status, timeout_ms=excluded.timeout_ms,
			max_retries=excluded.max_retries, retry_count=excluded.retry_count,
			retry_delay_ms=excluded.retry_delay_ms, depends_on=excluded.depends_on,
			assigned_to=excluded.assigned_to, error=excluded.error, result=excluded.result,
			started_at=excluded.started_at, completed_at=excluded.completed_at,
			execution_id=excluded.execution_id, parent_mission_id=excluded.parent_mission_id,
			unified_task_id=excluded.unified_task_id
	`,
		m.ID, m.Prompt, nullString(m.Context), string(m.Priority.String()), string(m.Type), string(m.Status),
		m.TimeoutMs, m.MaxRetries, m.RetryCount, m.RetryDelayMs, string(dependsOn),
		assignedToValue(m.AssignedTo), nullBytes(errJSON), nullBytes(resultJSON),
		m.CreatedAt, nullTime(m.StartedAt), nullTime(m.CompletedAt),
		nullString(m.ExecutionID), nullString(m.ParentID), nullString(m.RequirementID),
	)
	if err != nil {
		return wrapIO("SaveMission", err)
	}
	return nil
}

// UpdateMissionStatus performs a narrow, atomic status-plus-fields update
// without rewriting the whole row.
func (d *DB) UpdateMissionStatus(id string, status mission.Status, retryCount int, assignedTo string, executionID string) error {
	res, err := d.conn.Exec(`
		UPDATE missions SET status = ?, retry_count = ?, assigned_to = ?, execution_id = ?
		WHERE id = ?
	`, string(status), retryCount, assignedToValueFromString(assignedTo), nullString(executionID), id)
	if err != nil {
		return wrapIO("UpdateMissionStatus", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapIO("UpdateMissionStatus.rowsAffected", err)
	}
	if rows == 0 {
		return newNotFound("UpdateMissionStatus", fmt.Sprintf("mission %s not found", id))
	}
	return nil
}

// AtomicClaim is the single conditional update enforcing at-most-once
// dispatch: it only transitions a mission to running, assigned, and
// execution-stamped if it is currently queued with no execution id set.
// RowsAffected()==1 is the only source of truth for success.
func (d *DB) AtomicClaim(missionID, agentID, executionID string) (bool, error) {
	res, err := d.conn.Exec(`
		UPDATE missions
		SET status = 'running', assigned_to = ?, execution_id = ?, started_at = ?
		WHERE id = ? AND status = 'queued' AND execution_id IS NULL
	`, assignedToValueFromString(agentID), executionID, time.Now(), missionID)
	if err != nil {
		return false, wrapIO("AtomicClaim", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, wrapIO("AtomicClaim.rowsAffected", err)
	}
	return rows == 1, nil
}

// LoadPendingMissions returns every mission whose status has not reached
// a terminal state, for queue recovery at startup.
func (d *DB) LoadPendingMissions() ([]*mission.Mission, error) {
	rows, err := d.conn.Query(`
		SELECT id, prompt, context, priority, type, status, timeout_ms, max_retries,
		       retry_count, retry_delay_ms, depends_on, assigned_to, error, result,
		       created_at, started_at, completed_at, execution_id, parent_mission_id, unified_task_id
		FROM missions
		WHERE status IN ('pending', 'queued', 'blocked', 'retrying', 'running')
	`)
	if err != nil {
		return nil, wrapIO("LoadPendingMissions", err)
	}
	defer rows.Close()

	var result []*mission.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, wrapIO("LoadPendingMissions.scan", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapIO("LoadPendingMissions.rows", err)
	}
	return result, nil
}

// GetTaskLineage returns every agent_tasks row descended from either the
// given unified task id or parent mission id, used to trace a business
// requirement's full execution history.
func (d *DB) GetTaskLineage(unifiedTaskID, parentMissionID string) ([]*AgentTaskRow, error) {
	rows, err := d.conn.Query(`
		SELECT id, agent_id, prompt, status, unified_task_id, parent_mission_id, created_at
		FROM agent_tasks
		WHERE (unified_task_id = ? AND ? != '') OR (parent_mission_id = ? AND ? != '')
		ORDER BY created_at ASC
	`, unifiedTaskID, unifiedTaskID, parentMissionID, parentMissionID)
	if err != nil {
		return nil, wrapIO("GetTaskLineage", err)
	}
	defer rows.Close()

	var result []*AgentTaskRow
	for rows.Next() {
		var r AgentTaskRow
		var unifiedTask, parentMission sql.NullString
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Prompt, &r.Status, &unifiedTask, &parentMission, &r.CreatedAt); err != nil {
			return nil, wrapIO("GetTaskLineage.scan", err)
		}
		r.UnifiedTaskID = unifiedTask.String
		r.ParentMissionID = parentMission.String
		result = append(result, &r)
	}
	return result, rows.Err()
}

// AgentTaskRow is a lineage entry returned by GetTaskLineage.
type AgentTaskRow struct {
	ID              string
	AgentID         int
	Prompt          string
	Status          string
	UnifiedTaskID   string
	ParentMissionID string
	CreatedAt       time.Time
}

func scanMission(rows *sql.Rows) (*mission.Mission, error) {
	var m mission.Mission
	var context, assignedTo, errJSON, resultJSON, executionID, parentID, unifiedTaskID sql.NullString
	var priority, typ, status string
	var startedAt, completedAt sql.NullTime
	var dependsOnJSON string

	if err := rows.Scan(
		&m.ID, &m.Prompt, &context, &priority, &typ, &status, &m.TimeoutMs, &m.MaxRetries,
		&m.RetryCount, &m.RetryDelayMs, &dependsOnJSON, &assignedTo, &errJSON, &resultJSON,
		&m.CreatedAt, &startedAt, &completedAt, &executionID, &parentID, &unifiedTaskID,
	); err != nil {
		return nil, err
	}

	m.Context = context.String
	m.AssignedTo = assignedTo.String
	m.ExecutionID = executionID.String
	m.ParentID = parentID.String
	m.RequirementID = unifiedTaskID.String

	p, err := mission.ParsePriority(priority)
	if err != nil {
		return nil, err
	}
	m.Priority = p
	t, err := mission.ParseType(typ)
	if err != nil {
		return nil, err
	}
	m.Type = t
	m.Status = mission.Status(status)

	if err := json.Unmarshal([]byte(dependsOnJSON), &m.DependsOn); err != nil {
		return nil, fmt.Errorf("unmarshal dependsOn: %w", err)
	}
	if errJSON.Valid {
		var me mission.MissionError
		if err := json.Unmarshal([]byte(errJSON.String), &me); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
		m.Error = &me
	}
	if resultJSON.Valid {
		var res mission.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		m.Result = &res
	}
	if startedAt.Valid {
		t := startedAt.Time
		m.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}

	return &m, nil
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func assignedToValue(agentID string) sql.NullString {
	return nullString(agentID)
}

func assignedToValueFromString(agentID string) sql.NullString {
	return nullString(agentID)
}
