// Package state records the history of bundle builds in SQLite.
// It tracks each build, its outcome, and a content hash of every story it
// compiled, so that later builds can tell which stories changed.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BuildStatus is the outcome of a build.
type BuildStatus string

// Build statuses.
const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// Build is one bundle build.
type Build struct {
	ID          string      `json:"id" yaml:"id"`
	Entrypoint  []string    `json:"entrypoint" yaml:"entrypoint"`
	Services    []string    `json:"services" yaml:"services"`
	Status      BuildStatus `json:"status" yaml:"status"`
	Error       string      `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Duration returns how long a completed build took, or zero.
func (b *Build) Duration() time.Duration {
	if b.CompletedAt == nil {
		return 0
	}
	return b.CompletedAt.Sub(b.StartedAt)
}

// Store persists build history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateBuild(entrypoint []string) (*Build, error)
	CompleteBuild(id string, status BuildStatus, services []string, errMsg string) error
	GetBuild(id string) (*Build, error)
	GetLatestBuild() (*Build, error)
	ListBuilds(limit int) ([]*Build, error)

	SetStoryHashes(buildID string, hashes map[string]string) error
	GetStoryHashes(buildID string) (map[string]string, error)
	ChangedStories(sources map[string]string) ([]string, error)
}

// HashSource returns the content hash recorded for a story.
func HashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
