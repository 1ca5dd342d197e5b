package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/application-assistant/internal/schemas"
	"github.com/jonathan/application-assistant/internal/types"
)

const applicationColumns = `id, owner_id, company, job_title, job_description, resume,
	tools_selected, outputs, status, callback_received, date_applied, created_at`

// Save inserts a new application record. ID, CreatedAt and CallbackReceived
// are assigned here and written back to record.
func (db *DB) Save(ctx context.Context, record *types.ApplicationRecord) (uuid.UUID, error) {
	prepareForSave(record, time.Now().UTC())

	tools, err := json.Marshal(record.ToolsSelected)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal tools: %w", err)
	}
	outputs, err := schemas.EncodeOutputs(record.Outputs)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode outputs: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO applications (id, owner_id, company, job_title, job_description, resume,
			tools_selected, outputs, status, callback_received, date_applied)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		record.ID, record.OwnerID, record.Company, record.JobTitle, record.JobDescription, record.Resume,
		tools, outputs, string(record.Status), record.CallbackReceived, record.DateApplied,
	).Scan(&record.CreatedAt)
	if err != nil {
		return uuid.Nil, storageError("save application", err)
	}
	return record.ID, nil
}

// GetByID retrieves an application by ID
func (db *DB) GetByID(ctx context.Context, id uuid.UUID) (*types.ApplicationRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id,
	)
	record, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageError("get application", err)
	}
	return record, nil
}

// QueryByOwner lists an owner's applications, newest first
func (db *DB) QueryByOwner(ctx context.Context, ownerID string) ([]types.ApplicationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE owner_id = $1 ORDER BY created_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, storageError("query applications", err)
	}
	defer rows.Close()

	records := []types.ApplicationRecord{}
	for rows.Next() {
		record, err := scanApplication(rows)
		if err != nil {
			return nil, storageError("scan application", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query applications", err)
	}
	return records, nil
}

// UpdateStatus changes an application's status and recomputes callback_received.
func (db *DB) UpdateStatus(ctx context.Context, id uuid.UUID, status types.ApplicationStatus) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE applications SET status = $1, callback_received = $2 WHERE id = $3`,
		string(status), status.CallbackReceived(), id,
	)
	if err != nil {
		return storageError("update application status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return nil
}

// prepareForSave assigns server-side fields before insert.
func prepareForSave(record *types.ApplicationRecord, now time.Time) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = types.StatusApplied
	}
	record.SetStatus(record.Status)
	if record.DateApplied.IsZero() {
		record.DateApplied = now
	}
	record.CreatedAt = now
}

func scanApplication(row pgx.Row) (*types.ApplicationRecord, error) {
	var record types.ApplicationRecord
	var tools, outputs []byte
	var status string

	err := row.Scan(
		&record.ID, &record.OwnerID, &record.Company, &record.JobTitle, &record.JobDescription, &record.Resume,
		&tools, &outputs, &status, &record.CallbackReceived, &record.DateApplied, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tools, &record.ToolsSelected); err != nil {
		return nil, fmt.Errorf("failed to decode tools_selected: %w", err)
	}
	record.Outputs, _, err = schemas.DecodeOutputs(outputs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode outputs for %s: %w", record.ID, err)
	}
	record.Status = types.ApplicationStatus(status)
	return &record, nil
}
