// To handle all database interactions. This is the data access layer
// for the local read-model of the creator's channels and plans, keeping
// SQL queries separate from business logic.

package store

import (
	"database/sql"
	"time"

	"github.com/oneclicksub/creatorctl/internal/models"
)

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertProject writes the server's view of a project into the cache.
func (s *Store) UpsertProject(p *models.Project) error {
	status := p.LinkStatus()
	_, err := s.db.Exec(`
		INSERT INTO projects (id, title, username, telegram_channel_id, active, status, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			username = excluded.username,
			telegram_channel_id = excluded.telegram_channel_id,
			active = excluded.active,
			status = excluded.status,
			synced_at = excluded.synced_at`,
		p.ID, p.Title, p.Username, p.TelegramChannelID, p.Active, status, time.Now())
	return err
}

// GetProject returns a cached project, or sql.ErrNoRows when the id has
// never been synced.
func (s *Store) GetProject(id int64) (*models.Project, error) {
	var p models.Project
	var status string
	err := s.db.QueryRow(`
		SELECT id, title, username, telegram_channel_id, active, status
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Username, &p.TelegramChannelID, &p.Active, &status)
	if err != nil {
		return nil, err
	}
	p.Settings = &models.ProjectSettings{Status: status}
	return &p, nil
}

// ListProjects returns all cached projects ordered by id.
func (s *Store) ListProjects() ([]*models.Project, error) {
	rows, err := s.db.Query(`
		SELECT id, title, username, telegram_channel_id, active, status
		FROM projects ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		var status string
		if err := rows.Scan(&p.ID, &p.Title, &p.Username, &p.TelegramChannelID, &p.Active, &status); err != nil {
			return nil, err
		}
		p.Settings = &models.ProjectSettings{Status: status}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// ReplacePlansForProject swaps the cached plan set for a project with
// the server's current list, in one transaction.
func (s *Store) ReplacePlansForProject(projectID int64, plans []*models.Plan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM plans WHERE project_id = ?", projectID); err != nil {
		return err
	}
	for _, plan := range plans {
		_, err := tx.Exec(`
			INSERT INTO plans (id, project_id, name, price, currency, duration_days, active)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.ProjectID, plan.Name, plan.Price, plan.Currency, plan.DurationDays, plan.Active)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListPlansForProject returns the cached plans for a project.
func (s *Store) ListPlansForProject(projectID int64) ([]*models.Plan, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, name, price, currency, duration_days, active
		FROM plans WHERE project_id = ? ORDER BY id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Price, &p.Currency, &p.DurationDays, &p.Active); err != nil {
			return nil, err
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}
