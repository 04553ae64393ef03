// Package dashboard holds the view-state controller behind the analyze and
// history screens: file selection, upload, summary/history refresh, the
// per-entry row cache and client-side column sorting.
//
// The controller is single-threaded. Callers invoke one operation at a time
// and read state back through the accessors; nothing here is safe for
// concurrent use.
package dashboard

import (
	"context"
	"io"

	"github.com/KaramelBytes/cepv-cli/internal/api"
	"go.uber.org/zap"
)

// Service is the part of the analytics API the controller drives.
type Service interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*api.UploadResult, error)
	Summary(ctx context.Context) (*api.Summary, error)
	History(ctx context.Context) ([]api.HistoryEntry, error)
	DatasetRows(ctx context.Context, id int64) (*api.DatasetTable, error)
}

// Phase is the upload action's state.
type Phase int

const (
	Idle Phase = iota
	Validating
	ValidationFailed
	Uploading
	UploadFailed
	UploadSucceeded
	Refreshing
)

func (p Phase) String() string {
	switch p {
	case Validating:
		return "validating"
	case ValidationFailed:
		return "validation_failed"
	case Uploading:
		return "uploading"
	case UploadFailed:
		return "upload_failed"
	case UploadSucceeded:
		return "upload_succeeded"
	case Refreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// Controller is the dashboard view-state controller.
type Controller struct {
	svc    Service
	logger *zap.Logger

	// OnPhase, when set, observes every upload phase transition.
	OnPhase func(Phase)

	phase         Phase
	selection     *Selection
	summary       *api.Summary
	history       []api.HistoryEntry
	datasets      map[int64]DatasetState
	sort          SortState
	err           error
	scrollToStats bool
}

// New returns a controller in the Idle phase with empty summary and history.
func New(svc Service, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		svc:      svc,
		logger:   logger,
		history:  []api.HistoryEntry{},
		datasets: make(map[int64]DatasetState),
	}
}

// SelectFile stores the candidate without validating it.
func (c *Controller) SelectFile(sel *Selection) {
	c.selection = sel
}

// ClearSelection discards the current selection.
func (c *Controller) ClearSelection() {
	c.selection = nil
}

// Selection returns the current selection, nil when none.
func (c *Controller) Selection() *Selection { return c.selection }

// Upload validates the selection, sends it, and refreshes summary and history.
//
// A missing selection or a non-.csv name fails with *ValidationError and no
// network call. A failed send returns *UploadError; the selection is kept and
// nothing is refreshed. After a successful send the refreshes are best-effort:
// their failures reset the entities to empty and are only logged.
func (c *Controller) Upload(ctx context.Context) error {
	c.err = nil
	c.setPhase(Validating)
	if c.selection == nil {
		return c.failValidation(MsgNoFileChosen)
	}
	if !IsCSV(c.selection.Name) {
		return c.failValidation(MsgInvalidFileType)
	}

	c.setPhase(Uploading)
	if err := c.send(ctx); err != nil {
		c.logger.Warn("upload failed", zap.String("file", c.selection.Name), zap.Error(err))
		c.err = &UploadError{Err: err}
		c.setPhase(UploadFailed)
		c.setPhase(Idle)
		return c.err
	}
	c.setPhase(UploadSucceeded)
	c.logger.Debug("upload succeeded", zap.String("file", c.selection.Name))

	c.setPhase(Refreshing)
	c.RefreshSummary(ctx)
	c.RefreshHistory(ctx)
	c.scrollToStats = true
	c.setPhase(Idle)
	return nil
}

func (c *Controller) send(ctx context.Context) error {
	rc, err := c.selection.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = c.svc.Upload(ctx, c.selection.Name, rc)
	return err
}

func (c *Controller) failValidation(msg string) error {
	c.err = &ValidationError{Message: msg}
	c.setPhase(ValidationFailed)
	c.setPhase(Idle)
	return c.err
}

func (c *Controller) setPhase(p Phase) {
	c.phase = p
	if c.OnPhase != nil {
		c.OnPhase(p)
	}
}

// RefreshSummary replaces the summary with the server's. On failure the
// summary becomes nil.
func (c *Controller) RefreshSummary(ctx context.Context) {
	s, err := c.svc.Summary(ctx)
	if err != nil {
		c.logger.Warn("summary refresh failed", zap.Error(err))
		c.summary = nil
		return
	}
	c.summary = s
}

// RefreshHistory replaces the history with the server's, in the order
// received. On failure the history becomes empty. Cached row previews for
// entries no longer listed are dropped.
func (c *Controller) RefreshHistory(ctx context.Context) {
	h, err := c.svc.History(ctx)
	if err != nil {
		c.logger.Warn("history refresh failed", zap.Error(err))
		c.history = []api.HistoryEntry{}
		return
	}
	if h == nil {
		h = []api.HistoryEntry{}
	}
	c.history = h
	listed := make(map[int64]bool, len(h))
	for _, e := range h {
		listed[e.ID] = true
	}
	for id := range c.datasets {
		if !listed[id] {
			delete(c.datasets, id)
		}
	}
}

// LoadDatasetRows fetches the row preview for a history entry unless it is
// already loaded. On failure the entry returns to NotLoaded.
func (c *Controller) LoadDatasetRows(ctx context.Context, id int64) {
	if c.datasets[id].Status() == Loaded {
		return
	}
	c.datasets[id] = loadingState()
	t, err := c.svc.DatasetRows(ctx, id)
	if err != nil {
		c.logger.Warn("dataset rows load failed", zap.Int64("dataset_id", id), zap.Error(err))
		delete(c.datasets, id)
		return
	}
	c.datasets[id] = loadedState(t)
}

// SortDatasetRows sorts a loaded preview by a numeric column. Repeating the
// last (id, column) toggles the direction; anything else sorts ascending.
// Non-numeric columns and unloaded entries are left untouched.
func (c *Controller) SortDatasetRows(id int64, column string) {
	if !IsSortable(column) {
		return
	}
	t, ok := c.datasets[id].Table()
	if !ok {
		return
	}
	dir := Ascending
	if c.sort.Set && c.sort.DatasetID == id && c.sort.Column == column && c.sort.Direction == Ascending {
		dir = Descending
	}
	sortRows(t.Rows, column, dir)
	c.sort = SortState{DatasetID: id, Column: column, Direction: dir, Set: true}
}

// Summary returns the last fetched summary, nil when absent.
func (c *Controller) Summary() *api.Summary { return c.summary }

// History returns the last fetched history, newest first as sent by the server.
func (c *Controller) History() []api.HistoryEntry { return c.history }

// Dataset returns the cache state for a history entry.
func (c *Controller) Dataset(id int64) DatasetState { return c.datasets[id] }

// SortState returns the last applied sort.
func (c *Controller) SortState() SortState { return c.sort }

// LatestDatasetID returns the id of the first history entry.
func (c *Controller) LatestDatasetID() (int64, bool) {
	if len(c.history) == 0 {
		return 0, false
	}
	return c.history[0].ID, true
}

// Phase returns the current upload phase.
func (c *Controller) Phase() Phase { return c.phase }

// Busy reports whether the upload control should be disabled.
func (c *Controller) Busy() bool {
	return c.phase == Uploading || c.phase == Refreshing
}

// Err returns the single user-visible error, nil when none.
func (c *Controller) Err() error { return c.err }

// DismissError clears the user-visible error.
func (c *Controller) DismissError() { c.err = nil }

// ScrollToStatsRequested is set after a successful upload so the presentation
// layer can bring the statistics into view.
func (c *Controller) ScrollToStatsRequested() bool { return c.scrollToStats }

// AckScrollToStats clears the scroll request once it has been honored.
func (c *Controller) AckScrollToStats() { c.scrollToStats = false }
