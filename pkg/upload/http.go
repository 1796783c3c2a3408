package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	stackerrors "github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/httputil"
	"github.com/matzehuels/stackscan/pkg/store"
)

// CollectorPath is the collector's code location collection endpoint.
const CollectorPath = "/api/v1/codelocations"

const (
	defaultPollInterval = 2 * time.Second
	postAttempts        = 3
	defaultRetryDelay   = time.Second
)

// HTTPUploader posts code locations to a collector.
type HTTPUploader struct {
	base         string
	client       *httputil.Client
	pollInterval time.Duration
	retryDelay   time.Duration
	runID        string
	newID        func() string
	logger       *log.Logger
}

// HTTPOption configures an HTTPUploader.
type HTTPOption func(*HTTPUploader)

// WithClient sets the HTTP client.
func WithClient(c *httputil.Client) HTTPOption {
	return func(u *HTTPUploader) {
		if c != nil {
			u.client = c
		}
	}
}

// WithPollInterval sets how often waitable handles poll the collector.
func WithPollInterval(d time.Duration) HTTPOption {
	return func(u *HTTPUploader) {
		if d > 0 {
			u.pollInterval = d
		}
	}
}

// WithRetryDelay sets the initial delay between upload attempts.
func WithRetryDelay(d time.Duration) HTTPOption {
	return func(u *HTTPUploader) {
		if d > 0 {
			u.retryDelay = d
		}
	}
}

// WithHTTPRunID stamps records with the run that produced them.
func WithHTTPRunID(id string) HTTPOption {
	return func(u *HTTPUploader) { u.runID = id }
}

// WithHTTPLogger sets the logger for upload and poll events.
func WithHTTPLogger(l *log.Logger) HTTPOption {
	return func(u *HTTPUploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewHTTPUploader creates a sink posting to the collector at baseURL.
func NewHTTPUploader(baseURL string, opts ...HTTPOption) (*HTTPUploader, error) {
	if err := stackerrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u := &HTTPUploader{
		base:         strings.TrimRight(baseURL, "/"),
		client:       httputil.NewClient(),
		pollInterval: defaultPollInterval,
		retryDelay:   defaultRetryDelay,
		newID:        uuid.NewString,
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload posts every location and registers a waitable handle for each
// record the collector accepted.
func (u *HTTPUploader) Upload(ctx context.Context, locs []codelocation.CodeLocation, acc *codelocation.Accumulator) error {
	var errs []error
	for _, loc := range locs {
		name := loc.Name()
		if err := stackerrors.ValidateCodeLocationName(name); err != nil {
			errs = append(errs, err)
			continue
		}

		rec, err := u.post(ctx, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		h := &pending{uploader: u, id: rec.ID, name: name}
		if err := acc.AddWaitable(h); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", name, err))
			continue
		}
		u.logger.Debug("code location uploaded", "name", name, "id", rec.ID)
	}
	return errors.Join(errs...)
}

func (u *HTTPUploader) post(ctx context.Context, loc codelocation.CodeLocation) (store.Record, error) {
	doc := NewDocument(loc, u.runID)
	req := store.Record{
		ID:             u.newID(),
		Name:           doc.Name,
		ProjectName:    doc.ProjectName,
		ProjectVersion: doc.ProjectVersion,
		SourcePath:     doc.SourcePath,
		Creator:        doc.Creator,
		RunID:          doc.RunID,
		Graph:          doc.Graph,
	}

	var resp store.Record
	err := httputil.Retry(ctx, postAttempts, u.retryDelay, func() error {
		return u.client.PostJSON(ctx, u.base+CollectorPath, req, &resp)
	})
	if err != nil {
		return store.Record{}, err
	}
	if resp.ID == "" {
		resp.ID = req.ID
	}
	return resp, nil
}

func (u *HTTPUploader) recordURL(id string) string {
	return u.base + CollectorPath + "/" + url.PathEscape(id)
}

// pending is a collector record that has not finished processing.
type pending struct {
	uploader *HTTPUploader
	id       string
	name     string
}

func (p *pending) ID() string      { return p.id }
func (p *pending) Names() []string { return []string{p.name} }

// Wait polls the record until the collector marks it COMPLETE or FAILED.
// Transient collector errors are retried on the next tick.
func (p *pending) Wait(ctx context.Context) error {
	u := p.uploader
	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()

	for {
		var rec store.Record
		err := u.client.GetJSON(ctx, u.recordURL(p.id), &rec)
		switch {
		case err == nil && rec.Status == store.StatusComplete:
			return nil
		case err == nil && rec.Status == store.StatusFailed:
			return stackerrors.New(stackerrors.ErrCodeCodeLocationFailed, "collector rejected %s: %s", p.name, rec.Error)
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil && !httputil.IsRetryable(err):
			return err
		case err != nil:
			u.logger.Debug("poll failed, retrying", "id", p.id, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
