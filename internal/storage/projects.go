package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UpsertProjectByPath returns the project for a workspace path, creating it
// on first sight and touching last_active either way
func (db *DB) UpsertProjectByPath(path, name string, now time.Time) (*Project, error) {
	existing, err := db.GetProjectByPath(path)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		_, err := db.conn.Exec(
			"UPDATE projects SET last_active = ? WHERE id = ?",
			formatTime(now), existing.ID,
		)
		if err != nil {
			return nil, storeErr("touch project", err)
		}
		existing.LastActive = now
		return existing, nil
	}

	p := &Project{
		ID:         uuid.NewString(),
		Name:       name,
		Path:       path,
		CreatedAt:  now,
		LastActive: now,
	}

	_, err = db.conn.Exec(
		`INSERT INTO projects (id, name, path, description, created_at, last_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Path, p.Description, formatTime(p.CreatedAt), formatTime(p.LastActive),
	)
	if err != nil {
		return nil, storeErr("create project", err)
	}

	return p, nil
}

// GetProject returns a project by id, or nil if absent
func (db *DB) GetProject(id string) (*Project, error) {
	return db.scanProject(db.conn.QueryRow(projectSelect+" WHERE id = ?", id))
}

// GetProjectByPath returns a project by its workspace path, or nil if absent
func (db *DB) GetProjectByPath(path string) (*Project, error) {
	return db.scanProject(db.conn.QueryRow(projectSelect+" WHERE path = ?", path))
}

// GetProjectByName returns a project by name, or nil if absent
func (db *DB) GetProjectByName(name string) (*Project, error) {
	return db.scanProject(db.conn.QueryRow(projectSelect+" WHERE name = ? ORDER BY last_active DESC LIMIT 1", name))
}

// ListProjects returns all projects ordered by recency
func (db *DB) ListProjects() ([]Project, error) {
	rows, err := db.conn.Query(projectSelect + " ORDER BY last_active DESC")
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ListUnlinkedProjects returns projects without a PM linkage
func (db *DB) ListUnlinkedProjects() ([]Project, error) {
	rows, err := db.conn.Query(projectSelect + " WHERE pm_system IS NULL OR pm_system = '' ORDER BY last_active DESC")
	if err != nil {
		return nil, storeErr("list unlinked projects", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ListLinkedProjects returns projects with a PM linkage
func (db *DB) ListLinkedProjects() ([]Project, error) {
	rows, err := db.conn.Query(projectSelect + " WHERE pm_system IS NOT NULL AND pm_system != '' ORDER BY last_active DESC")
	if err != nil {
		return nil, storeErr("list linked projects", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// LinkProjectPM sets the PM linkage triple on a project
func (db *DB) LinkProjectPM(projectID, pmSystem, pmProjectID, pmWorkspace string) error {
	res, err := db.conn.Exec(
		"UPDATE projects SET pm_system = ?, pm_project_id = ?, pm_workspace = ? WHERE id = ?",
		pmSystem, pmProjectID, nullable(pmWorkspace), projectID,
	)
	if err != nil {
		return storeErr("link project", err)
	}
	return requireRow(res, "link project")
}

// UnlinkProjectPM clears the PM linkage with true NULLs
func (db *DB) UnlinkProjectPM(projectID string) error {
	res, err := db.conn.Exec(
		"UPDATE projects SET pm_system = NULL, pm_project_id = NULL, pm_workspace = NULL WHERE id = ?",
		projectID,
	)
	if err != nil {
		return storeErr("unlink project", err)
	}
	return requireRow(res, "unlink project")
}

const projectSelect = `SELECT id, name, path, COALESCE(description, ''), created_at, last_active,
	COALESCE(pm_system, ''), COALESCE(pm_project_id, ''), COALESCE(pm_workspace, '') FROM projects`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProjectRow(row rowScanner) (*Project, error) {
	var p Project
	var createdAt, lastActive string
	err := row.Scan(&p.ID, &p.Name, &p.Path, &p.Description, &createdAt, &lastActive,
		&p.PMSystem, &p.PMProjectID, &p.PMWorkspace)
	if err != nil {
		return nil, storeErr("scan project", err)
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeErr("parse project created_at", err)
	}
	if p.LastActive, err = parseTime(lastActive); err != nil {
		return nil, storeErr("parse project last_active", err)
	}
	return &p, nil
}

func (db *DB) scanProject(row *sql.Row) (*Project, error) {
	p, err := scanProjectRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return storeErr(op, sql.ErrNoRows)
	}
	return nil
}
