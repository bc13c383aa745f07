package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UpsertIntegrationConfig inserts or refreshes credentials keyed on system_type
func (db *DB) UpsertIntegrationConfig(c *IntegrationConfig) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := db.conn.Exec(
		`INSERT INTO integration_configs (id, system_type, api_url, api_key, workspace_slug, project_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(system_type) DO UPDATE SET
			api_url = excluded.api_url,
			api_key = excluded.api_key,
			workspace_slug = excluded.workspace_slug,
			project_id = excluded.project_id,
			updated_at = excluded.updated_at`,
		c.ID, c.SystemType, c.APIURL, c.APIKey, nullable(c.WorkspaceSlug),
		nullable(c.ProjectID), formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return storeErr("upsert integration config", err)
	}
	return nil
}

// GetIntegrationConfig returns credentials for a system type, or nil
func (db *DB) GetIntegrationConfig(systemType string) (*IntegrationConfig, error) {
	row := db.conn.QueryRow(integrationSelect+" WHERE system_type = ?", systemType)
	c, err := scanIntegration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListIntegrationConfigs returns all configured integrations
func (db *DB) ListIntegrationConfigs() ([]IntegrationConfig, error) {
	rows, err := db.conn.Query(integrationSelect + " ORDER BY system_type")
	if err != nil {
		return nil, storeErr("list integration configs", err)
	}
	defer rows.Close()

	var configs []IntegrationConfig
	for rows.Next() {
		c, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// DeleteIntegrationConfig removes credentials for a system type
func (db *DB) DeleteIntegrationConfig(systemType string) error {
	res, err := db.conn.Exec("DELETE FROM integration_configs WHERE system_type = ?", systemType)
	if err != nil {
		return storeErr("delete integration config", err)
	}
	return requireRow(res, "delete integration config")
}

const integrationSelect = `SELECT id, system_type, api_url, api_key, COALESCE(workspace_slug, ''),
	COALESCE(project_id, ''), created_at, updated_at FROM integration_configs`

func scanIntegration(row rowScanner) (*IntegrationConfig, error) {
	var c IntegrationConfig
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.SystemType, &c.APIURL, &c.APIKey, &c.WorkspaceSlug,
		&c.ProjectID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan integration config", err)
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeErr("parse integration created_at", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, storeErr("parse integration updated_at", err)
	}
	return &c, nil
}
