package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/orcakit/core/internal/mission"
)

// SaveRequirement inserts or replaces a business requirement (unified
// task) row.
func (d *DB) SaveRequirement(r *mission.Requirement) error {
	_, err := d.conn.Exec(`
		INSERT INTO unified_tasks (id, title, description, status, priority, domain, component, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description, status=excluded.status,
			priority=excluded.priority, domain=excluded.domain, component=excluded.component,
			session_id=excluded.session_id, updated_at=excluded.updated_at
	`, r.ID, r.Title, nullString(r.Description), string(r.Status), r.Priority.String(),
		string(r.Domain), nullString(r.Component), nullString(r.SessionID), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return wrapIO("SaveRequirement", err)
	}
	return nil
}

// UpdateBusinessRequirementStatus updates only the status and timestamp,
// the narrow operation the oracle/queue call when a requirement's
// missions all settle.
func (d *DB) UpdateBusinessRequirementStatus(id string, status mission.RequirementStatus) error {
	res, err := d.conn.Exec(`
		UPDATE unified_tasks SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now(), id)
	if err != nil {
		return wrapIO("UpdateBusinessRequirementStatus", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapIO("UpdateBusinessRequirementStatus.rowsAffected", err)
	}
	if rows == 0 {
		return newNotFound("UpdateBusinessRequirementStatus", fmt.Sprintf("requirement %s not found", id))
	}
	return nil
}

// GetRequirement fetches a single business requirement.
func (d *DB) GetRequirement(id string) (*mission.Requirement, error) {
	row := d.conn.QueryRow(`
		SELECT id, title, description, status, priority, domain, component, session_id, created_at, updated_at
		FROM unified_tasks WHERE id = ?
	`, id)

	var r mission.Requirement
	var description, component, sessionID sql.NullString
	var priority string

	err := row.Scan(&r.ID, &r.Title, &description, &r.Status, &priority, &r.Domain, &component, &sessionID, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, newNotFound("GetRequirement", fmt.Sprintf("requirement %s not found", id))
	}
	if err != nil {
		return nil, wrapIO("GetRequirement", err)
	}

	r.Description = description.String
	r.Component = component.String
	r.SessionID = sessionID.String
	p, err := mission.ParsePriority(priority)
	if err != nil {
		return nil, err
	}
	r.Priority = p
	return &r, nil
}
