package upload

import (
	"context"
	"errors"
	"strings"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	graphio "github.com/matzehuels/stackscan/pkg/io"
)

// Uploader delivers code locations to a sink.
type Uploader interface {
	// Upload delivers locs and registers each delivered location with acc.
	// A failure for one location does not stop the others; the returned
	// error joins every failure.
	Upload(ctx context.Context, locs []codelocation.CodeLocation, acc *codelocation.Accumulator) error
}

// Document is the serialized form of a code location.
type Document struct {
	Name           string        `json:"name"`
	ProjectName    string        `json:"project_name"`
	ProjectVersion string        `json:"project_version"`
	SourcePath     string        `json:"source_path"`
	Creator        string        `json:"creator"`
	RunID          string        `json:"run_id,omitempty"`
	Graph          graphio.Graph `json:"graph"`
}

// NewDocument converts loc into its serialized form.
func NewDocument(loc codelocation.CodeLocation, runID string) Document {
	return Document{
		Name:           loc.Name(),
		ProjectName:    loc.Project.Name,
		ProjectVersion: loc.Project.Version,
		SourcePath:     loc.SourcePath,
		Creator:        loc.Creator,
		RunID:          runID,
		Graph:          graphio.Encode(loc.Graph),
	}
}

// Multi uploads to every sink in order.
type Multi []Uploader

func (m Multi) Upload(ctx context.Context, locs []codelocation.CodeLocation, acc *codelocation.Accumulator) error {
	var errs []error
	for _, u := range m {
		if err := u.Upload(ctx, locs, acc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Slug turns a code location name into a file name.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_.")
}
