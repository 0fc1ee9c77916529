package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/partident/internal/capture"
	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/images"
	"github.com/lehigh-university-libraries/partident/internal/models"
)

const (
	msgInsufficientAngles = "Precision requires at least 3 distinct angles."
	msgEngineFailed       = "AI Vision processing failed. Verify connection."
	msgSessionFailed      = "Failed to save analysis session."
	msgBusy               = "An analysis is already in progress."
	msgDecodeFailed       = "Error processing captured image."
)

// Engine identifies a part from ordered photos and a catalog snapshot.
type Engine interface {
	Identify(ctx context.Context, photos []models.PhotoCapture, catalog []models.CatalogItem) (*models.IdentificationResult, error)
}

// Persistence stores sessions, their images and matches.
type Persistence interface {
	CreateSession(ctx context.Context, summary string, totalMatches int) (string, error)
	UploadImage(ctx context.Context, payload []byte, format, hint string) (string, error)
	RecordImage(ctx context.Context, sessionID, imageURL, angleLabel string) error
	RecordMatches(ctx context.Context, sessionID string, matches []models.AutoPart) error
	ListRecentSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// Catalog provides the read-only catalog snapshot sent with each identification.
type Catalog interface {
	Snapshot() []models.CatalogItem
}

// Outcome describes a completed identification.
type Outcome struct {
	SessionID string                       `json:"session_id"`
	Result    *models.IdentificationResult `json:"result"`
	Images    BatchResult                  `json:"images"`
	// MatchesErr is set when the session was saved but its matches were not.
	MatchesErr error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// State is a point-in-time view of the scan.
type State struct {
	Stage   models.Stage                 `json:"stage"`
	Photos  []models.PhotoCapture        `json:"photos"`
	Result  *models.IdentificationResult `json:"result,omitempty"`
	Error   string                       `json:"error,omitempty"`
	History []models.Session             `json:"history"`
}

// Orchestrator drives the IDLE -> ANALYZING -> RESULT workflow over a capture buffer.
type Orchestrator struct {
	mu sync.Mutex

	stage   models.Stage
	result  *models.IdentificationResult
	lastErr string
	history []models.Session

	buffer        *capture.Buffer
	decoder       *images.Decoder
	engine        Engine
	store         Persistence
	catalog       Catalog
	uploadWorkers int
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithUploadWorkers bounds how many photos are uploaded at once.
func WithUploadWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.uploadWorkers = n
		}
	}
}

func WithDecoder(d *images.Decoder) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.decoder = d
		}
	}
}

func NewOrchestrator(engine Engine, store Persistence, catalog Catalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stage:         models.StageIdle,
		decoder:       images.NewDecoder(0),
		engine:        engine,
		store:         store,
		catalog:       catalog,
		uploadWorkers: 4,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.buffer = capture.NewBuffer(o.decoder)
	return o
}

// StartIdentification analyzes the buffered photos and persists the result.
func (o *Orchestrator) StartIdentification(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	o.mu.Lock()
	if o.stage == models.StageAnalyzing {
		o.mu.Unlock()
		return nil, apperrors.New(apperrors.KindState, "scan.identify", msgBusy)
	}
	photos := o.buffer.Photos()
	if len(photos) < models.MinAngles {
		o.lastErr = msgInsufficientAngles
		o.mu.Unlock()
		return nil, apperrors.New(apperrors.KindValidation, "scan.identify", msgInsufficientAngles)
	}
	o.stage = models.StageAnalyzing
	o.result = nil
	o.lastErr = ""
	o.mu.Unlock()

	slog.Info("Starting identification", "photos", len(photos))

	result, err := o.engine.Identify(ctx, photos, o.catalog.Snapshot())
	if err != nil {
		slog.Error("Identification failed", "error", err)
		return nil, o.fail(apperrors.Wrap(apperrors.KindEngine, "scan.identify", msgEngineFailed, err))
	}
	if result == nil {
		slog.Error("Identification returned no result")
		return nil, o.fail(apperrors.New(apperrors.KindEngine, "scan.identify", msgEngineFailed))
	}

	sessionID, err := o.store.CreateSession(ctx, result.Summary, len(result.Parts))
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		return nil, o.fail(apperrors.Wrap(apperrors.KindPersistence, "scan.create_session", msgSessionFailed, err))
	}

	outcome := &Outcome{
		SessionID: sessionID,
		Result:    result,
		Images:    o.persistImages(ctx, sessionID, photos),
	}

	if len(result.Parts) > 0 {
		if err := o.store.RecordMatches(ctx, sessionID, result.Parts); err != nil {
			slog.Error("Failed to record matches", "session_id", sessionID, "error", err)
			outcome.MatchesErr = apperrors.Wrap(apperrors.KindPersistence, "scan.record_matches", "Failed to save matches.", err)
		}
	}

	if err := o.RefreshHistory(ctx); err != nil {
		slog.Error("Failed to refresh history", "error", err)
	}

	o.mu.Lock()
	o.stage = models.StageResult
	o.result = result
	o.mu.Unlock()

	outcome.Duration = time.Since(start)
	slog.Info("Session persisted",
		"session_id", sessionID,
		"matches", len(result.Parts),
		"images_saved", outcome.Images.Succeeded(),
		"images_failed", outcome.Images.Failed(),
		"duration", outcome.Duration)
	return outcome, nil
}

// fail returns to IDLE keeping the buffer, and records the banner text.
func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stage = models.StageIdle
	o.result = nil
	o.lastErr = apperrors.Message(err)
	return err
}

// Reset discards the photos, result and error.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage == models.StageAnalyzing {
		return apperrors.New(apperrors.KindState, "scan.reset", msgBusy)
	}
	o.buffer.Clear()
	o.stage = models.StageIdle
	o.result = nil
	o.lastErr = ""
	return nil
}

// AdjustPerspective returns to capture keeping the photos so more angles can be added.
func (o *Orchestrator) AdjustPerspective() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage == models.StageAnalyzing {
		return apperrors.New(apperrors.KindState, "scan.adjust", msgBusy)
	}
	o.stage = models.StageIdle
	o.result = nil
	o.lastErr = ""
	return nil
}

// AddPhoto decodes a single capture and appends it as "Angle N".
func (o *Orchestrator) AddPhoto(data []byte) (models.PhotoCapture, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage == models.StageAnalyzing {
		return models.PhotoCapture{}, apperrors.New(apperrors.KindState, "scan.add_photo", msgBusy)
	}

	payload, err := o.decoder.DecodeBytes(data)
	if err != nil {
		o.lastErr = msgDecodeFailed
		return models.PhotoCapture{}, apperrors.Wrap(apperrors.KindDecode, "scan.add_photo", msgDecodeFailed, err)
	}
	o.lastErr = ""
	return o.buffer.Add(payload.Data, payload.Format), nil
}

// AddBatch decodes files concurrently and appends them as "Batch N"; all or nothing.
// Decoding runs without the lock so State and History stay responsive.
func (o *Orchestrator) AddBatch(ctx context.Context, files []capture.RawFile) ([]models.PhotoCapture, error) {
	o.mu.Lock()
	busy := o.stage == models.StageAnalyzing
	o.mu.Unlock()
	if busy {
		return nil, apperrors.New(apperrors.KindState, "scan.add_batch", msgBusy)
	}

	payloads, err := o.buffer.DecodeBatch(ctx, files)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.lastErr = apperrors.Message(err)
		return nil, err
	}
	// An analysis may have started while decoding; its photo set is already fixed.
	if o.stage == models.StageAnalyzing {
		return nil, apperrors.New(apperrors.KindState, "scan.add_batch", msgBusy)
	}
	photos := o.buffer.AppendBatch(payloads)
	o.lastErr = ""
	return photos, nil
}

// RemovePhoto drops one capture; it reports whether anything was removed.
func (o *Orchestrator) RemovePhoto(id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage == models.StageAnalyzing {
		return false, apperrors.New(apperrors.KindState, "scan.remove_photo", msgBusy)
	}
	return o.buffer.Remove(id), nil
}

func (o *Orchestrator) ClearPhotos() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage == models.StageAnalyzing {
		return apperrors.New(apperrors.KindState, "scan.clear_photos", msgBusy)
	}
	o.buffer.Clear()
	return nil
}

// RefreshHistory reloads the recent sessions from persistence.
func (o *Orchestrator) RefreshHistory(ctx context.Context) error {
	sessions, err := o.store.ListRecentSessions(ctx, models.HistoryLimit)
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "scan.refresh_history", "Failed to load history.", err)
	}

	o.mu.Lock()
	o.history = sessions
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) History() []models.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	history := make([]models.Session, len(o.history))
	copy(history, o.history)
	return history
}

// State returns a snapshot of the workflow. Photo payloads are omitted.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	photos := o.buffer.Photos()
	for i := range photos {
		photos[i].Data = nil
	}
	history := make([]models.Session, len(o.history))
	copy(history, o.history)

	return State{
		Stage:   o.stage,
		Photos:  photos,
		Result:  o.result,
		Error:   o.lastErr,
		History: history,
	}
}

// Photos returns the buffered captures including their payloads.
func (o *Orchestrator) Photos() []models.PhotoCapture {
	return o.buffer.Photos()
}
