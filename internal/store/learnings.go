package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Learning is a durable record of something the system inferred from a
// mission outcome: a pattern worth remembering, tagged to its source.
type Learning struct {
	ID                  string
	Category            string
	Title               string
	Description         string
	Confidence          string
	ValidationCount     int
	SourceSessionID     string
	SourceTaskID        string
	SourceMissionID     string
	SourceUnifiedTaskID string
	AgentID             int
	CreatedAt           time.Time
}

// CreateLearning inserts a new learning row.
func (d *DB) CreateLearning(l *Learning) error {
	_, err := d.conn.Exec(`
		INSERT INTO learnings (
			id, category, title, description, confidence, validation_count,
			source_session_id, source_task_id, source_mission_id, source_unified_task_id,
			agent_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.Category, l.Title, nullString(l.Description), l.Confidence, l.ValidationCount,
		nullString(l.SourceSessionID), nullString(l.SourceTaskID), nullString(l.SourceMissionID),
		nullString(l.SourceUnifiedTaskID), nullInt(l.AgentID), l.CreatedAt)
	if err != nil {
		return wrapIO("CreateLearning", err)
	}
	return nil
}

// GetLearningByID fetches a single learning.
func (d *DB) GetLearningByID(id string) (*Learning, error) {
	row := d.conn.QueryRow(`
		SELECT id, category, title, description, confidence, validation_count,
		       source_session_id, source_task_id, source_mission_id, source_unified_task_id,
		       agent_id, created_at
		FROM learnings WHERE id = ?
	`, id)
	l, err := scanLearning(row)
	if err == sql.ErrNoRows {
		return nil, newNotFound("GetLearningByID", fmt.Sprintf("learning %s not found", id))
	}
	if err != nil {
		return nil, wrapIO("GetLearningByID", err)
	}
	return l, nil
}

// ValidateLearning bumps a learning's validation_count, the signal that
// another mission independently confirmed it.
func (d *DB) ValidateLearning(id string) error {
	res, err := d.conn.Exec(`UPDATE learnings SET validation_count = validation_count + 1 WHERE id = ?`, id)
	if err != nil {
		return wrapIO("ValidateLearning", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapIO("ValidateLearning.rowsAffected", err)
	}
	if rows == 0 {
		return newNotFound("ValidateLearning", fmt.Sprintf("learning %s not found", id))
	}
	return nil
}

// SetLearningConfidence overwrites a learning's confidence tier, used by
// the learning loop's boostConfidence and decayStale operations.
func (d *DB) SetLearningConfidence(id, confidence string) error {
	res, err := d.conn.Exec(`UPDATE learnings SET confidence = ? WHERE id = ?`, confidence, id)
	if err != nil {
		return wrapIO("SetLearningConfidence", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapIO("SetLearningConfidence.rowsAffected", err)
	}
	if rows == 0 {
		return newNotFound("SetLearningConfidence", fmt.Sprintf("learning %s not found", id))
	}
	return nil
}

// GetStaleLearnings returns unvalidated learnings created before cutoff,
// the candidate set decayStale downgrades.
func (d *DB) GetStaleLearnings(cutoff time.Time) ([]*Learning, error) {
	rows, err := d.conn.Query(`
		SELECT id, category, title, description, confidence, validation_count,
		       source_session_id, source_task_id, source_mission_id, source_unified_task_id,
		       agent_id, created_at
		FROM learnings WHERE created_at < ? AND validation_count = 0
	`, cutoff)
	if err != nil {
		return nil, wrapIO("GetStaleLearnings", err)
	}
	defer rows.Close()

	var result []*Learning
	for rows.Next() {
		l, err := scanLearning(rows)
		if err != nil {
			return nil, wrapIO("GetStaleLearnings.scan", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// GetLearningsByTask returns every learning sourced from a given agent task.
func (d *DB) GetLearningsByTask(taskID string) ([]*Learning, error) {
	return d.queryLearnings(`
		SELECT id, category, title, description, confidence, validation_count,
		       source_session_id, source_task_id, source_mission_id, source_unified_task_id,
		       agent_id, created_at
		FROM learnings WHERE source_task_id = ? ORDER BY created_at DESC
	`, taskID)
}

// GetLearningsByMission returns every learning sourced from a given mission.
func (d *DB) GetLearningsByMission(missionID string) ([]*Learning, error) {
	return d.queryLearnings(`
		SELECT id, category, title, description, confidence, validation_count,
		       source_session_id, source_task_id, source_mission_id, source_unified_task_id,
		       agent_id, created_at
		FROM learnings WHERE source_mission_id = ? ORDER BY created_at DESC
	`, missionID)
}

func (d *DB) queryLearnings(query string, arg string) ([]*Learning, error) {
	rows, err := d.conn.Query(query, arg)
	if err != nil {
		return nil, wrapIO("queryLearnings", err)
	}
	defer rows.Close()

	var result []*Learning
	for rows.Next() {
		l, err := scanLearning(rows)
		if err != nil {
			return nil, wrapIO("queryLearnings.scan", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanLearning(s scanner) (*Learning, error) {
	var l Learning
	var description, sessionID, taskID, missionID, unifiedTaskID sql.NullString
	var agentID sql.NullInt64

	if err := s.Scan(&l.ID, &l.Category, &l.Title, &description, &l.Confidence, &l.ValidationCount,
		&sessionID, &taskID, &missionID, &unifiedTaskID, &agentID, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Description = description.String
	l.SourceSessionID = sessionID.String
	l.SourceTaskID = taskID.String
	l.SourceMissionID = missionID.String
	l.SourceUnifiedTaskID = unifiedTaskID.String
	if agentID.Valid {
		l.AgentID = int(agentID.Int64)
	}
	return &l, nil
}
