package state

import (
	"fmt"
	"sort"
)

// SetStoryHashes stores the content hash of every story of a build.
func (s *SQLiteStore) SetStoryHashes(buildID string, hashes map[string]string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO story_hashes (build_id, path, hash) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare hash insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for path, hash := range hashes {
		if _, err := stmt.Exec(buildID, path, hash); err != nil {
			return fmt.Errorf("failed to store hash of %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hashes: %w", err)
	}
	return nil
}

// GetStoryHashes retrieves the content hashes recorded by a build.
func (s *SQLiteStore) GetStoryHashes(buildID string) (map[string]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT path, hash FROM story_hashes WHERE build_id = ?`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get story hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan story hash: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// ChangedStories returns the stories whose source differs from the latest
// successful build, sorted. Without a previous build every story changed.
func (s *SQLiteStore) ChangedStories(sources map[string]string) ([]string, error) {
	latest, err := s.GetLatestBuild()
	if err != nil {
		return nil, err
	}
	previous := map[string]string{}
	if latest != nil {
		if previous, err = s.GetStoryHashes(latest.ID); err != nil {
			return nil, err
		}
	}

	var changed []string
	for path, source := range sources {
		if previous[path] != HashSource(source) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}
