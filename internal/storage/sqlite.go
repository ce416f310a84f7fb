package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		site_url TEXT NOT NULL,
		query TEXT,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP,
		termination_reason TEXT
	);

	CREATE TABLE IF NOT EXISTS templates (
		template_id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_url TEXT UNIQUE NOT NULL,
		session_id TEXT,
		kind TEXT NOT NULL,
		score REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS template_tags (
		template_id INTEGER NOT NULL,
		tag TEXT NOT NULL,
		median INTEGER NOT NULL,
		FOREIGN KEY (template_id) REFERENCES templates(template_id) ON DELETE CASCADE,
		UNIQUE(template_id, tag)
	);

	CREATE TABLE IF NOT EXISTS template_pages (
		template_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		FOREIGN KEY (template_id) REFERENCES templates(template_id) ON DELETE CASCADE,
		UNIQUE(template_id, url)
	);

	CREATE TABLE IF NOT EXISTS connections (
		site_url TEXT NOT NULL,
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		session_id TEXT,
		UNIQUE(site_url, from_url, to_url)
	);

	CREATE INDEX IF NOT EXISTS idx_templates_site ON templates(site_url);
	CREATE INDEX IF NOT EXISTS idx_connections_site ON connections(site_url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartSession records a new session for siteURL and returns its ID
func (s *Storage) StartSession(siteURL, query string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO sessions (session_id, site_url, query, started_at)
		VALUES (?, ?, ?, ?)
	`, id, siteURL, query, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// FinishSession stamps the session with its end time and reason
func (s *Storage) FinishSession(sessionID, reason string) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET finished_at = ?, termination_reason = ?
		WHERE session_id = ?
	`, time.Now(), reason, sessionID)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, returns nil if not found
func (s *Storage) GetSession(sessionID string) (*Session, error) {
	var session Session
	var finished sql.NullTime
	var reason, query sql.NullString
	err := s.db.QueryRow(`
		SELECT session_id, site_url, query, started_at, finished_at, termination_reason
		FROM sessions
		WHERE session_id = ?
	`, sessionID).Scan(&session.SessionID, &session.SiteURL, &query, &session.StartedAt, &finished, &reason)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Query = query.String
	session.TerminationReason = reason.String
	if finished.Valid {
		session.FinishedAt = &finished.Time
	}
	return &session, nil
}

// SaveTemplate replaces the stored template of t.SiteURL
func (s *Storage) SaveTemplate(t *Template) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO templates (site_url, session_id, kind, score, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(site_url) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			kind = EXCLUDED.kind,
			score = EXCLUDED.score,
			created_at = EXCLUDED.created_at
	`, t.SiteURL, t.SessionID, t.Kind, t.Score, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}

	var templateID int
	if err := tx.QueryRow("SELECT template_id FROM templates WHERE site_url = ?", t.SiteURL).Scan(&templateID); err != nil {
		return fmt.Errorf("failed to retrieve template_id: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM template_tags WHERE template_id = ?", templateID); err != nil {
		return fmt.Errorf("failed to clear template tags: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM template_pages WHERE template_id = ?", templateID); err != nil {
		return fmt.Errorf("failed to clear template pages: %w", err)
	}

	for tag, median := range t.Tags {
		if _, err := tx.Exec("INSERT INTO template_tags (template_id, tag, median) VALUES (?, ?, ?)", templateID, tag, median); err != nil {
			return fmt.Errorf("failed to insert template tag %s: %w", tag, err)
		}
	}
	for i, page := range t.Pages {
		if _, err := tx.Exec("INSERT OR IGNORE INTO template_pages (template_id, position, url) VALUES (?, ?, ?)", templateID, i, page); err != nil {
			return fmt.Errorf("failed to insert template page %s: %w", page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit template: %w", err)
	}
	t.TemplateID = templateID
	return nil
}

// LoadTemplate retrieves the stored template of siteURL, returns nil if not found
func (s *Storage) LoadTemplate(siteURL string) (*Template, error) {
	t := Template{SiteURL: siteURL, Tags: make(map[string]int)}
	var sessionID sql.NullString
	err := s.db.QueryRow(`
		SELECT template_id, session_id, kind, score, created_at
		FROM templates
		WHERE site_url = ?
	`, siteURL).Scan(&t.TemplateID, &sessionID, &t.Kind, &t.Score, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	t.SessionID = sessionID.String

	rows, err := s.db.Query("SELECT tag, median FROM template_tags WHERE template_id = ?", t.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		var median int
		if err := rows.Scan(&tag, &median); err != nil {
			return nil, fmt.Errorf("failed to scan template tag: %w", err)
		}
		t.Tags[tag] = median
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template tags: %w", err)
	}

	pages, err := s.db.Query("SELECT url FROM template_pages WHERE template_id = ? ORDER BY position ASC", t.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template pages: %w", err)
	}
	defer pages.Close()
	for pages.Next() {
		var page string
		if err := pages.Scan(&page); err != nil {
			return nil, fmt.Errorf("failed to scan template page: %w", err)
		}
		t.Pages = append(t.Pages, page)
	}
	if err := pages.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template pages: %w", err)
	}

	return &t, nil
}

// SaveConnections inserts the discovered connections of siteURL, ignoring duplicates
func (s *Storage) SaveConnections(siteURL, sessionID string, conns []Connection) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO connections (site_url, from_url, to_url, session_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(site_url, from_url, to_url) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare connection insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, c := range conns {
		res, err := stmt.Exec(siteURL, c.From, c.To, sessionID)
		if err != nil {
			return written, fmt.Errorf("failed to insert connection %s->%s: %w", c.From, c.To, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit connections: %w", err)
	}
	return written, nil
}

// LoadConnections returns every stored connection of siteURL
func (s *Storage) LoadConnections(siteURL string) ([]Connection, error) {
	rows, err := s.db.Query(`
		SELECT from_url, to_url
		FROM connections
		WHERE site_url = ?
		ORDER BY from_url, to_url
	`, siteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.From, &c.To); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return conns, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
