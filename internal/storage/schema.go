package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// initializeSchema creates missing tables, adds missing columns and seeds
// default categories. Safe to run on every open.
func (db *DB) initializeSchema() error {
	tables := []struct {
		name string
		ddl  string
	}{
		{
			"projects",
			`CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				description TEXT,
				created_at TEXT NOT NULL,
				last_active TEXT NOT NULL,
				pm_system TEXT,
				pm_project_id TEXT,
				pm_workspace TEXT
			)`,
		},
		{
			"sessions",
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				start_time TEXT NOT NULL,
				end_time TEXT,
				total_active_seconds INTEGER NOT NULL DEFAULT 0,
				idle_seconds INTEGER NOT NULL DEFAULT 0,
				interruption_count INTEGER NOT NULL DEFAULT 0,
				categories TEXT NOT NULL DEFAULT '[]',
				work_item_ids TEXT NOT NULL DEFAULT '[]'
			)`,
		},
		{
			"work_items",
			`CREATE TABLE IF NOT EXISTS work_items (
				id TEXT PRIMARY KEY,
				external_id TEXT NOT NULL,
				external_system TEXT NOT NULL,
				title TEXT,
				description TEXT,
				status TEXT,
				project TEXT,
				workspace TEXT,
				last_synced TEXT,
				UNIQUE(external_id, external_system)
			)`,
		},
		{
			"activity_spans",
			`CREATE TABLE IF NOT EXISTS activity_spans (
				id TEXT PRIMARY KEY,
				app_bundle_id TEXT NOT NULL,
				category TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				duration_seconds INTEGER NOT NULL DEFAULT 0,
				project_id TEXT REFERENCES projects(id),
				work_item_id TEXT REFERENCES work_items(id),
				session_id TEXT REFERENCES sessions(id),
				context TEXT
			)`,
		},
		{
			"project_time",
			`CREATE TABLE IF NOT EXISTS project_time (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL REFERENCES projects(id),
				date TEXT NOT NULL,
				duration_seconds INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL,
				UNIQUE(project_id, date)
			)`,
		},
		{
			"settings",
			`CREATE TABLE IF NOT EXISTS settings (
				id TEXT PRIMARY KEY,
				pause_tracking INTEGER NOT NULL DEFAULT 0,
				excluded_apps TEXT NOT NULL DEFAULT '[]',
				idle_threshold_seconds INTEGER NOT NULL DEFAULT 300,
				enable_work_item_tracking INTEGER NOT NULL DEFAULT 1,
				capture_window_title INTEGER NOT NULL DEFAULT 1,
				capture_browser_url INTEGER NOT NULL DEFAULT 0,
				url_whitelist TEXT NOT NULL DEFAULT '[]',
				work_start_hour INTEGER NOT NULL DEFAULT 9,
				work_end_hour INTEGER NOT NULL DEFAULT 18,
				session_end_idle_seconds INTEGER NOT NULL DEFAULT 900
			)`,
		},
		{
			"categories",
			`CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				pattern TEXT NOT NULL,
				description TEXT
			)`,
		},
		{
			"classification_rules",
			`CREATE TABLE IF NOT EXISTS classification_rules (
				id TEXT PRIMARY KEY,
				pattern TEXT NOT NULL,
				pattern_type TEXT NOT NULL,
				category TEXT NOT NULL,
				priority INTEGER NOT NULL DEFAULT 100,
				created_at TEXT NOT NULL,
				hit_count INTEGER NOT NULL DEFAULT 0,
				last_hit TEXT,
				UNIQUE(pattern, pattern_type)
			)`,
		},
		{
			"issue_candidates",
			`CREATE TABLE IF NOT EXISTS issue_candidates (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL REFERENCES projects(id),
				external_id TEXT NOT NULL,
				external_system TEXT NOT NULL,
				pm_project_id TEXT,
				source_external_ref TEXT,
				title TEXT NOT NULL,
				description TEXT,
				status TEXT NOT NULL,
				labels TEXT NOT NULL DEFAULT '[]',
				assignee TEXT,
				embedding BLOB,
				complexity INTEGER,
				complexity_reason TEXT,
				estimated_seconds INTEGER,
				last_synced TEXT NOT NULL,
				UNIQUE(external_id, external_system)
			)`,
		},
		{
			"time_blocks",
			`CREATE TABLE IF NOT EXISTS time_blocks (
				id TEXT PRIMARY KEY,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				project_id TEXT REFERENCES projects(id),
				work_item_ids TEXT NOT NULL DEFAULT '[]',
				description TEXT NOT NULL,
				tags TEXT NOT NULL DEFAULT '[]',
				source TEXT NOT NULL,
				confidence REAL,
				confirmed INTEGER NOT NULL DEFAULT 0,
				synced INTEGER NOT NULL DEFAULT 0,
				source_external_ref TEXT,
				created_at TEXT NOT NULL
			)`,
		},
		{
			"synced_issues",
			`CREATE TABLE IF NOT EXISTS synced_issues (
				id TEXT PRIMARY KEY,
				source_external_ref TEXT NOT NULL,
				source_database_id TEXT,
				target_system TEXT NOT NULL,
				target_project TEXT NOT NULL,
				target_issue_id TEXT NOT NULL,
				target_issue_number INTEGER NOT NULL DEFAULT 0,
				target_issue_url TEXT,
				title TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(source_external_ref, target_system, target_project)
			)`,
		},
		{
			"integration_configs",
			`CREATE TABLE IF NOT EXISTS integration_configs (
				id TEXT PRIMARY KEY,
				system_type TEXT NOT NULL UNIQUE,
				api_url TEXT NOT NULL,
				api_key TEXT NOT NULL,
				workspace_slug TEXT,
				project_id TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	}

	for _, t := range tables {
		if _, err := db.conn.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_activity_spans_start_time ON activity_spans(start_time)",
		"CREATE INDEX IF NOT EXISTS idx_activity_spans_session ON activity_spans(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_activity_spans_project ON activity_spans(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_activity_spans_work_item ON activity_spans(work_item_id)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time)",
		"CREATE INDEX IF NOT EXISTS idx_project_time_date ON project_time(date)",
		"CREATE INDEX IF NOT EXISTS idx_project_time_project ON project_time(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_work_items_external ON work_items(external_id, external_system)",
		"CREATE INDEX IF NOT EXISTS idx_issue_candidates_project ON issue_candidates(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_issue_candidates_status ON issue_candidates(status)",
		"CREATE INDEX IF NOT EXISTS idx_issue_candidates_external ON issue_candidates(external_id, external_system)",
		"CREATE INDEX IF NOT EXISTS idx_time_blocks_confirmed ON time_blocks(confirmed)",
		"CREATE INDEX IF NOT EXISTS idx_time_blocks_synced ON time_blocks(synced)",
		"CREATE INDEX IF NOT EXISTS idx_classification_rules_priority ON classification_rules(priority DESC)",
		"CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name)",
		"CREATE INDEX IF NOT EXISTS idx_synced_issues_target ON synced_issues(target_system, target_project)",
	}

	for _, idx := range indexes {
		if _, err := db.conn.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := db.runColumnMigrations(); err != nil {
		return err
	}

	return db.seedDefaultCategories()
}

// runColumnMigrations adds columns introduced after the initial schema.
// SQLite has no ALTER TABLE IF NOT EXISTS, so presence is checked manually.
func (db *DB) runColumnMigrations() error {
	migrations := []struct {
		table  string
		column string
		ddl    string
	}{
		{"settings", "work_start_hour", "ALTER TABLE settings ADD COLUMN work_start_hour INTEGER NOT NULL DEFAULT 9"},
		{"settings", "work_end_hour", "ALTER TABLE settings ADD COLUMN work_end_hour INTEGER NOT NULL DEFAULT 18"},
		{"settings", "session_end_idle_seconds", "ALTER TABLE settings ADD COLUMN session_end_idle_seconds INTEGER NOT NULL DEFAULT 900"},
		{"issue_candidates", "source_external_ref", "ALTER TABLE issue_candidates ADD COLUMN source_external_ref TEXT"},
		{"issue_candidates", "complexity", "ALTER TABLE issue_candidates ADD COLUMN complexity INTEGER"},
		{"issue_candidates", "complexity_reason", "ALTER TABLE issue_candidates ADD COLUMN complexity_reason TEXT"},
		{"issue_candidates", "estimated_seconds", "ALTER TABLE issue_candidates ADD COLUMN estimated_seconds INTEGER"},
		{"time_blocks", "source_external_ref", "ALTER TABLE time_blocks ADD COLUMN source_external_ref TEXT"},
	}

	for _, m := range migrations {
		exists, err := db.columnExists(m.table, m.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.conn.Exec(m.ddl); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", m.table, m.column, err)
		}
		db.logger.Info("added column", map[string]interface{}{
			"table":  m.table,
			"column": m.column,
		})
	}

	return nil
}

func (db *DB) columnExists(table, column string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	return count > 0, nil
}

// defaultCategories are the built-in regex categories seeded on first open.
// Patterns are matched case-insensitively against "bundle_id window_title".
var defaultCategories = []Category{
	{
		Name:        "Coding",
		Pattern:     `(?i)(vscode|code|cursor|todesktop|intellij|pycharm|webstorm|sublime|vim|nvim|neovim|emacs|xcode|android.studio|zed|antigravity|windsurf|replit)`,
		Description: "Code editors and IDEs",
	},
	{
		Name:        "AI-CLI",
		Pattern:     `(?i)(claude|gemini|openai|anthropic|copilot|aider|continue)`,
		Description: "AI coding assistants (CLI)",
	},
	{
		Name:        "Terminal",
		Pattern:     `(?i)(terminal|iterm|konsole|gnome-terminal|wezterm|alacritty|kitty|hyper|warp)`,
		Description: "Terminal and shell",
	},
	{
		Name:        "Break",
		Pattern:     `(?i)(instagram|facebook|twitter|tiktok|youtube|netflix|twitch|reddit|linkedin\.com/feed|threads|snapchat|pinterest|tumblr|weibo|bilibili)`,
		Description: "Personal browsing and breaks",
	},
	{
		Name:        "Research",
		Pattern:     `(?i)(stackoverflow|github\.com|gitlab\.com|docs\.|documentation|api\s+reference|mdn\s+web|devdocs|plane\.so|jira|linear\.app|notion\.so)`,
		Description: "Work-related research and documentation",
	},
	{
		Name:        "Browser",
		Pattern:     `(?i)(chrome|firefox|safari|edge|brave|arc|opera|vivaldi)`,
		Description: "Web browsers (general)",
	},
	{
		Name:        "Communication",
		Pattern:     `(?i)(slack|discord|teams|zoom|skype|telegram|whatsapp|messages|mail)`,
		Description: "Communication tools",
	},
	{
		Name:        "Documentation",
		Pattern:     `(?i)(notion|obsidian|evernote|onenote|bear|typora|logseq|roam)`,
		Description: "Documentation and notes",
	},
	{
		Name:        "Design",
		Pattern:     `(?i)(figma|sketch|adobe|photoshop|illustrator|canva|affinity)`,
		Description: "Design tools",
	},
	{
		Name:        "Database",
		Pattern:     `(?i)(dbeaver|tableplus|sequel|datagrip|mongodb|postico|pgadmin)`,
		Description: "Database clients",
	},
	{
		Name:        "Git",
		Pattern:     `(?i)(github|gitlab|sourcetree|gitkraken|fork|tower)`,
		Description: "Git clients and services",
	},
}

func (db *DB) seedDefaultCategories() error {
	for _, cat := range defaultCategories {
		var exists bool
		err := db.conn.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM categories WHERE name = ?)", cat.Name,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check category %s: %w", cat.Name, err)
		}
		if exists {
			continue
		}

		_, err = db.conn.Exec(
			"INSERT INTO categories (id, name, pattern, description) VALUES (?, ?, ?, ?)",
			uuid.NewString(), cat.Name, cat.Pattern, cat.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", cat.Name, err)
		}
	}

	return nil
}

// ListCategories returns the built-in categories in insertion order
func (db *DB) ListCategories() ([]Category, error) {
	rows, err := db.conn.Query("SELECT id, name, pattern, COALESCE(description, '') FROM categories ORDER BY rowid")
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Pattern, &c.Description); err != nil {
			return nil, storeErr("scan category", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
