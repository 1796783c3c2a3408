// Package store persists code locations received by the collector.
//
// A [Record] is both the wire format the HTTP uploader posts and the
// document the collector stores. Two backends implement [Store]:
// [MemoryStore] for tests and single-process use, and [MongoStore] for
// durable, shared storage.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/stackscan/pkg/errors"
	graphio "github.com/matzehuels/stackscan/pkg/io"
)

// Status tracks a record through collector processing.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusComplete Status = "COMPLETE"
	StatusFailed   Status = "FAILED"
)

// Terminal reports whether processing has finished.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusFailed }

// Record is one submitted code location.
type Record struct {
	ID             string        `json:"id" bson:"_id"`
	Name           string        `json:"name" bson:"name"`
	ProjectName    string        `json:"project_name" bson:"project_name"`
	ProjectVersion string        `json:"project_version" bson:"project_version"`
	SourcePath     string        `json:"source_path,omitempty" bson:"source_path,omitempty"`
	Creator        string        `json:"creator,omitempty" bson:"creator,omitempty"`
	RunID          string        `json:"run_id,omitempty" bson:"run_id,omitempty"`
	Graph          graphio.Graph `json:"graph" bson:"graph"`
	Status         Status        `json:"status" bson:"status"`
	Error          string        `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at"`
}

// ListOptions filters List.
type ListOptions struct {
	ProjectName string
	Status      Status
	Limit       int
}

func (o ListOptions) match(r Record) bool {
	if o.ProjectName != "" && r.ProjectName != o.ProjectName {
		return false
	}
	if o.Status != "" && r.Status != o.Status {
		return false
	}
	return true
}

// Store persists records.
type Store interface {
	// Put inserts or replaces the record with r.ID.
	Put(ctx context.Context, r Record) error
	// Get returns the record with id or an ErrCodeNotFound error.
	Get(ctx context.Context, id string) (Record, error)
	// List returns matching records, newest first.
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	// SetStatus moves a record to status, recording msg as its error.
	SetStatus(ctx context.Context, id string, status Status, msg string) error
	Close(ctx context.Context) error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "code location %s not found", id)
}
