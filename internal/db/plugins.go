package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// PluginStore persists the plugin catalogue: a human-maintained,
// purely cosmetic record registered through POST /plugins. It shares
// no Go type or identity with the in-process plugin registry — a
// catalogue row is informational, not a live handle (see
// internal/plugins.Manifest and models.Plugin's doc comment).
type PluginStore struct {
	db *sql.DB
}

func NewPluginStore(database *sql.DB) *PluginStore {
	return &PluginStore{db: database}
}

const pluginColumns = `id, name, version, description, created_at`

// Create inserts a new catalogue row and returns its assigned id.
func (s *PluginStore) Create(ctx context.Context, in models.PluginCreate) (*models.Plugin, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO plugins (name, version, description)
		VALUES ($1, $2, $3)
		RETURNING `+pluginColumns,
		in.Name, in.Version, in.Description,
	)
	return scanPlugin(row)
}

func (s *PluginStore) Get(ctx context.Context, id int64) (*models.Plugin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pluginColumns+` FROM plugins WHERE id = $1`, id)
	return scanPlugin(row)
}

func (s *PluginStore) List(ctx context.Context) ([]*models.Plugin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+pluginColumns+` FROM plugins ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("db: list plugins: %w", err)
	}
	defer rows.Close()

	var out []*models.Plugin
	for rows.Next() {
		p, err := scanPlugin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlugin(row rowScanner) (*models.Plugin, error) {
	var p models.Plugin
	if err := row.Scan(&p.ID, &p.Name, &p.Version, &p.Description, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("db: scan plugin: %w", err)
	}
	return &p, nil
}
