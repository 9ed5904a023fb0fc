package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const buildColumns = `id, entrypoint, services, status, error, started_at, completed_at`

// CreateBuild records the start of a build.
func (s *SQLiteStore) CreateBuild(entrypoint []string) (*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	build := &Build{
		ID:         generateID(),
		Entrypoint: entrypoint,
		Services:   []string{},
		Status:     BuildStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	encoded, err := encodeList(entrypoint)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entrypoint: %w", err)
	}

	s.logger.Debug("creating build", slog.String("id", build.ID), slog.Int("stories", len(entrypoint)))

	_, err = s.db.Exec(
		`INSERT INTO builds (id, entrypoint, status, started_at) VALUES (?, ?, ?, ?)`,
		build.ID, encoded, string(build.Status), build.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build: %w", err)
	}
	return build, nil
}

// CompleteBuild records the outcome of a build.
func (s *SQLiteStore) CompleteBuild(id string, status BuildStatus, services []string, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	encoded, err := encodeList(services)
	if err != nil {
		return fmt.Errorf("failed to encode services: %w", err)
	}
	var errorValue sql.NullString
	if errMsg != "" {
		errorValue = sql.NullString{String: errMsg, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE builds SET status = ?, services = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), encoded, errorValue, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build not found: %s", id)
	}
	return nil
}

// GetBuild retrieves a build by ID.
func (s *SQLiteStore) GetBuild(id string) (*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	build, err := scanBuild(s.db.QueryRow(`SELECT `+buildColumns+` FROM builds WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}
	return build, nil
}

// GetLatestBuild retrieves the most recent successful build, or nil.
func (s *SQLiteStore) GetLatestBuild() (*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	build, err := scanBuild(s.db.QueryRow(
		`SELECT `+buildColumns+` FROM builds WHERE status = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		string(BuildStatusSucceeded),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	return build, nil
}

// ListBuilds retrieves the most recent builds up to the given limit.
func (s *SQLiteStore) ListBuilds(limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []*Build
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, build)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*Build, error) {
	build := &Build{}
	var entrypoint, services, status string
	var errMsg sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(&build.ID, &entrypoint, &services, &status, &errMsg, &build.StartedAt, &completedAt); err != nil {
		return nil, err
	}

	var err error
	if build.Entrypoint, err = decodeList(entrypoint); err != nil {
		return nil, fmt.Errorf("invalid entrypoint of build %s: %w", build.ID, err)
	}
	if build.Services, err = decodeList(services); err != nil {
		return nil, fmt.Errorf("invalid services of build %s: %w", build.ID, err)
	}
	build.Status = BuildStatus(status)
	if errMsg.Valid {
		build.Error = errMsg.String
	}
	if completedAt.Valid {
		build.CompletedAt = &completedAt.Time
	}
	return build, nil
}
