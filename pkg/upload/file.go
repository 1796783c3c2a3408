package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	stackerrors "github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/render/nodelink"
)

// Output formats supported by FileUploader.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{FormatJSON, FormatDOT, FormatSVG}

// FileUploader writes code locations into a directory.
type FileUploader struct {
	dir     string
	formats []string
	runID   string
	logger  *log.Logger
}

// FileOption configures a FileUploader.
type FileOption func(*FileUploader)

// WithFileLogger sets the logger for write events.
func WithFileLogger(l *log.Logger) FileOption {
	return func(u *FileUploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithRunID stamps documents with the run that produced them.
func WithRunID(id string) FileOption {
	return func(u *FileUploader) { u.runID = id }
}

// NewFileUploader creates a sink writing the given formats into dir.
// Formats default to JSON.
func NewFileUploader(dir string, formats []string, opts ...FileOption) (*FileUploader, error) {
	if dir == "" {
		return nil, stackerrors.New(stackerrors.ErrCodeInvalidConfig, "upload directory cannot be empty")
	}
	if len(formats) == 0 {
		formats = []string{FormatJSON}
	}
	for _, f := range formats {
		if !slices.Contains(ValidFormats, f) {
			return nil, stackerrors.New(stackerrors.ErrCodeInvalidConfig, "unknown upload format %q (valid: %v)", f, ValidFormats)
		}
	}

	u := &FileUploader{
		dir:     dir,
		formats: slices.Compact(slices.Sorted(slices.Values(formats))),
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Dir returns the output directory.
func (u *FileUploader) Dir() string { return u.dir }

// Upload writes every location and registers its name as non-waitable.
func (u *FileUploader) Upload(ctx context.Context, locs []codelocation.CodeLocation, acc *codelocation.Accumulator) error {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return stackerrors.Wrap(stackerrors.ErrCodeInvalidPath, err, "create upload directory")
	}

	var errs []error
	written := make(map[string]string, len(locs))
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		name := loc.Name()
		if err := stackerrors.ValidateCodeLocationName(name); err != nil {
			errs = append(errs, err)
			continue
		}
		slug := Slug(name)
		if slug == "" {
			errs = append(errs, stackerrors.New(stackerrors.ErrCodeInvalidInput, "code location %q has no usable file name", name))
			continue
		}
		// File names are compared case-insensitively for macOS and Windows.
		key := strings.ToLower(slug)
		if prev, ok := written[key]; ok && prev != name {
			errs = append(errs, stackerrors.New(stackerrors.ErrCodeInvalidInput,
				"code location %q would overwrite %q (both write %s)", name, prev, slug))
			continue
		}
		written[key] = name
		if err := u.write(ctx, loc, slug); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		acc.AddNonWaitable(name)
		u.logger.Debug("code location written", "name", name, "dir", u.dir)
	}
	return errors.Join(errs...)
}

func (u *FileUploader) write(ctx context.Context, loc codelocation.CodeLocation, slug string) error {
	base := filepath.Join(u.dir, slug)
	var dot string

	for _, f := range u.formats {
		var data []byte
		var err error
		switch f {
		case FormatJSON:
			data, err = json.MarshalIndent(NewDocument(loc, u.runID), "", "  ")
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(loc.Graph, nodelink.Options{Title: loc.Name()})
			}
			if f == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(ctx, dot)
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if err := os.WriteFile(base+"."+f, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
	}
	return nil
}
