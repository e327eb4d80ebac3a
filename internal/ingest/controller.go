package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/api"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/bus"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// ErrEmptyText is returned when pasted text is blank; nothing is submitted.
var ErrEmptyText = errors.New("no log text to analyze")

// Analyzer is the subset of the API client the controller drives.
type Analyzer interface {
	UploadLog(ctx context.Context, filename string, content io.Reader) (string, error)
	AnalyzeLogs(ctx context.Context, req api.AnalyzeRequest) ([]incident.Incident, error)
}

// Recorder receives one observation per finished submission.
type Recorder interface {
	ObserveIngestion(source, outcome string, incidents int)
}

// Options configures a Controller.
type Options struct {
	Bus      bus.Bus
	Recorder Recorder
	Logger   *log.Logger
	// Actor names the signed-in user for activity messages.
	Actor func() string
	// OnInFlight is called when the first submission starts (true) and when
	// the last pending one finishes (false).
	OnInFlight func(bool)
}

// Controller submits log files or raw text for analysis and prepends the
// resulting incidents to the store. It never retries.
type Controller struct {
	client   Analyzer
	store    *incident.Store
	bus      bus.Bus
	recorder Recorder
	logger   *log.Logger
	actor    func() string
	onFlight func(bool)

	pending atomic.Int32
}

// NewController wires a controller to the backend client and the incident store.
func NewController(client Analyzer, st *incident.Store, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Bus == nil {
		opts.Bus = bus.NewNullBus(opts.Logger)
	}
	return &Controller{
		client:   client,
		store:    st,
		bus:      opts.Bus,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		actor:    opts.Actor,
		onFlight: opts.OnInFlight,
	}
}

// InFlight reports whether any submission is waiting on the backend.
// Overlapping submissions are not blocked; the UI disables its submit
// actions while this is true.
func (c *Controller) InFlight() bool {
	return c.pending.Load() > 0
}

func (c *Controller) begin() {
	if c.pending.Add(1) == 1 && c.onFlight != nil {
		c.onFlight(true)
	}
}

func (c *Controller) end() {
	if c.pending.Add(-1) == 0 && c.onFlight != nil {
		c.onFlight(false)
	}
}

// SubmitFile uploads f, then analyzes the resulting upload id.
func (c *Controller) SubmitFile(ctx context.Context, f LogFile) ([]incident.Incident, error) {
	c.begin()
	defer c.end()

	subID := uuid.NewString()
	ctx = api.WithRequestID(ctx, subID)
	src := f.source()
	c.logger.Printf("submission %s: uploading %s (%s) source=%s", subID, f.Name, f.SizeLabel(), src)

	incidents, err := c.uploadAndAnalyze(ctx, f)
	if err != nil {
		c.finish(src, err, 0)
		c.logger.Printf("submission %s failed: %v", subID, err)
		return nil, err
	}
	c.apply(ctx, subID, incidents)
	c.finish(src, nil, len(incidents))
	return incidents, nil
}

func (c *Controller) uploadAndAnalyze(ctx context.Context, f LogFile) ([]incident.Incident, error) {
	rc, err := f.open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	uploadID, err := c.client.UploadLog(ctx, f.Name, rc)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	incidents, err := c.client.AnalyzeLogs(ctx, api.AnalyzeRequest{UploadID: uploadID})
	if err != nil {
		return nil, fmt.Errorf("analyze upload %s: %w", uploadID, err)
	}
	return incidents, nil
}

// SubmitText analyzes pasted log text directly; no upload is made.
func (c *Controller) SubmitText(ctx context.Context, text string) ([]incident.Incident, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	c.begin()
	defer c.end()

	subID := uuid.NewString()
	ctx = api.WithRequestID(ctx, subID)
	c.logger.Printf("submission %s: analyzing %d bytes of pasted text", subID, len(text))

	incidents, err := c.client.AnalyzeLogs(ctx, api.AnalyzeRequest{LogText: text})
	if err != nil {
		err = fmt.Errorf("analyze text: %w", err)
		c.finish(SourceText, err, 0)
		c.logger.Printf("submission %s failed: %v", subID, err)
		return nil, err
	}
	c.apply(ctx, subID, incidents)
	c.finish(SourceText, nil, len(incidents))
	return incidents, nil
}

func (c *Controller) apply(ctx context.Context, subID string, incidents []incident.Incident) {
	c.store.PrependMany(incidents)
	c.logger.Printf("submission %s: %d new incident(s)", subID, len(incidents))

	actor := ""
	if c.actor != nil {
		actor = c.actor()
	}
	now := time.Now().Unix()
	for _, inc := range incidents {
		err := c.bus.PublishActivity(ctx, bus.ActivityMessage{
			Kind:         bus.KindIngested,
			IncidentID:   inc.IncidentID,
			Status:       string(inc.Status),
			Severity:     string(inc.Severity),
			Service:      inc.Service,
			SubmissionID: subID,
			Actor:        actor,
			Timestamp:    now,
		})
		if err != nil {
			c.logger.Printf("activity publish failed for %s: %v", inc.IncidentID, err)
		}
	}
}

func (c *Controller) finish(source string, err error, n int) {
	if c.recorder == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.recorder.ObserveIngestion(source, outcome, n)
}
