// Package dashboard is the composition root of the console: it owns the
// incident store, filter state, ingestion, selection and triage, and tells
// subscribers when anything visible changed.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/bus"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/ingest"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/selection"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/store"
)

// ErrUnknownIncident is returned when a status change names an id not in the store.
var ErrUnknownIncident = errors.New("incident not found")

// Backend is the API surface the dashboard drives; *api.Client satisfies it.
type Backend interface {
	ingest.Analyzer
	FetchIncidents(ctx context.Context, status, severity string) ([]incident.Incident, error)
	UpdateIncidentStatus(ctx context.Context, id string, status incident.Status) error
}

// Recorder receives triage observations.
type Recorder interface {
	ObserveStatusChange(status, outcome string)
}

// Auditor keeps a local trail of triage actions; *store.Store satisfies it.
type Auditor interface {
	AddAuditEntry(ctx context.Context, entry store.AuditEntry) error
}

// Options configures a Dashboard. Zero values are usable.
type Options struct {
	Bus            bus.Bus
	Recorder       Recorder
	IngestRecorder ingest.Recorder
	Audit          Auditor
	Logger         *log.Logger
	// Actor names the signed-in user for audit and activity records.
	Actor      func() string
	CloseDelay time.Duration
	Scheduler  selection.Scheduler
	// ServerSideFilter passes status/severity to the backend on Load.
	ServerSideFilter bool
}

// Dashboard holds everything the incident view renders from.
type Dashboard struct {
	client   Backend
	incs     *incident.Store
	ingest   *ingest.Controller
	drawer   *selection.Drawer
	bus      bus.Bus
	recorder Recorder
	audit    Auditor
	logger   *log.Logger
	actor    func() string
	server   bool

	mu       sync.RWMutex
	criteria incident.Criteria
	loading  bool
	notice   *Notice

	subMu    sync.Mutex
	subs     map[int]func()
	nextSub  int
	notifier func(Notice)
}

// New assembles a dashboard around the backend client.
func New(client Backend, opts Options) *Dashboard {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Bus == nil {
		opts.Bus = bus.NewNullBus(opts.Logger)
	}
	if opts.Actor == nil {
		opts.Actor = func() string { return "" }
	}

	d := &Dashboard{
		client:   client,
		incs:     incident.NewStore(),
		bus:      opts.Bus,
		recorder: opts.Recorder,
		audit:    opts.Audit,
		logger:   opts.Logger,
		actor:    opts.Actor,
		server:   opts.ServerSideFilter,
		criteria: incident.Criteria{Status: incident.All, Severity: incident.All},
		subs:     make(map[int]func()),
	}
	d.ingest = ingest.NewController(client, d.incs, ingest.Options{
		Bus:      opts.Bus,
		Recorder: opts.IngestRecorder,
		Logger:   opts.Logger,
		Actor:    opts.Actor,
		OnInFlight: func(bool) {
			d.changed()
		},
	})

	drawerOpts := []selection.Option{selection.WithOnChange(d.changed)}
	if opts.Scheduler != nil {
		drawerOpts = append(drawerOpts, selection.WithScheduler(opts.Scheduler))
	}
	d.drawer = selection.NewDrawer(opts.CloseDelay, drawerOpts...)
	return d
}

// Store exposes the incident store.
func (d *Dashboard) Store() *incident.Store { return d.incs }

// Drawer exposes the selection drawer.
func (d *Dashboard) Drawer() *selection.Drawer { return d.drawer }

// Subscribe registers fn to run after every visible change and returns a
// function that removes it. fn runs on the goroutine that made the change.
func (d *Dashboard) Subscribe(fn func()) (unsubscribe func()) {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

// OnNotice sets the function that displays notices to the user.
func (d *Dashboard) OnNotice(fn func(Notice)) {
	d.subMu.Lock()
	d.notifier = fn
	d.subMu.Unlock()
}

func (d *Dashboard) changed() {
	d.subMu.Lock()
	fns := make([]func(), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *Dashboard) notify(level Level, format string, args ...interface{}) {
	n := Notice{Level: level, Message: fmt.Sprintf(format, args...), At: time.Now()}
	d.logger.Printf("notice (%s): %s", n.Level, n.Message)

	d.mu.Lock()
	d.notice = &n
	d.mu.Unlock()

	d.subMu.Lock()
	fn := d.notifier
	d.subMu.Unlock()
	if fn != nil {
		fn(n)
	}
}

// LastNotice returns the most recent notice, if any.
func (d *Dashboard) LastNotice() (Notice, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.notice == nil {
		return Notice{}, false
	}
	return *d.notice, true
}

// Loading reports whether the incident list is being fetched.
func (d *Dashboard) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// InFlight reports whether a log submission is pending.
func (d *Dashboard) InFlight() bool {
	return d.ingest.InFlight()
}

// Load fetches the incident list and replaces the store. On failure the
// store keeps its previous contents.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	c := d.criteria
	d.mu.Unlock()
	d.changed()

	defer func() {
		d.mu.Lock()
		d.loading = false
		d.mu.Unlock()
		d.changed()
	}()

	var status, severity string
	if d.server {
		status, severity = c.Status.QueryValue(), c.Severity.QueryValue()
	}
	list, err := d.client.FetchIncidents(ctx, status, severity)
	if err != nil {
		d.notify(LevelError, "Failed to load incidents: %v", err)
		return fmt.Errorf("load incidents: %w", err)
	}
	d.incs.ReplaceAll(list)
	d.logger.Printf("loaded %d incident(s)", len(list))
	return nil
}

// Criteria returns the current filter triple.
func (d *Dashboard) Criteria() incident.Criteria {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.criteria
}

// SetCriteria replaces the filter triple.
func (d *Dashboard) SetCriteria(c incident.Criteria) {
	d.mu.Lock()
	d.criteria = c
	d.mu.Unlock()
	d.changed()
}

// SetStatusFilter changes only the status predicate.
func (d *Dashboard) SetStatusFilter(f incident.StatusFilter) {
	d.mu.Lock()
	d.criteria.Status = f
	d.mu.Unlock()
	d.changed()
}

// SetSeverityFilter changes only the severity predicate.
func (d *Dashboard) SetSeverityFilter(f incident.SeverityFilter) {
	d.mu.Lock()
	d.criteria.Severity = f
	d.mu.Unlock()
	d.changed()
}

// SetSearch changes only the search term.
func (d *Dashboard) SetSearch(term string) {
	d.mu.Lock()
	d.criteria.Search = term
	d.mu.Unlock()
	d.changed()
}

// ServerSideFilter reports whether Load sends filters to the backend.
func (d *Dashboard) ServerSideFilter() bool { return d.server }

// Visible returns the filtered incident list in display order.
func (d *Dashboard) Visible() []incident.Incident {
	return incident.Filter(d.incs.All(), d.Criteria())
}

// SubmitFile uploads and analyzes a log file.
func (d *Dashboard) SubmitFile(ctx context.Context, f ingest.LogFile) ([]incident.Incident, error) {
	incidents, err := d.ingest.SubmitFile(ctx, f)
	if err != nil {
		d.notify(LevelError, "Failed to analyze %s: %v", f.Name, err)
		return nil, err
	}
	d.notify(LevelSuccess, "Analysis of %s complete: %s", f.Name, countLabel(len(incidents)))
	d.auditIngest(ctx, f.Name, incidents)
	return incidents, nil
}

// SubmitText analyzes pasted log text. Blank text is ignored.
func (d *Dashboard) SubmitText(ctx context.Context, text string) ([]incident.Incident, error) {
	incidents, err := d.ingest.SubmitText(ctx, text)
	if errors.Is(err, ingest.ErrEmptyText) {
		return nil, err
	}
	if err != nil {
		d.notify(LevelError, "Failed to analyze logs: %v", err)
		return nil, err
	}
	d.notify(LevelSuccess, "Analysis complete: %s", countLabel(len(incidents)))
	d.auditIngest(ctx, "pasted text", incidents)
	return incidents, nil
}

func countLabel(n int) string {
	if n == 1 {
		return "1 new incident"
	}
	return fmt.Sprintf("%d new incidents", n)
}

func (d *Dashboard) auditIngest(ctx context.Context, what string, incidents []incident.Incident) {
	if d.audit == nil {
		return
	}
	for _, inc := range incidents {
		err := d.audit.AddAuditEntry(ctx, store.AuditEntry{
			IncidentID: inc.IncidentID,
			Action:     store.ActionIngest,
			Actor:      d.actor(),
			Details: map[string]string{
				"source":   what,
				"severity": string(inc.Severity),
				"service":  inc.Service,
			},
		})
		if err != nil {
			d.logger.Printf("audit ingest %s: %v", inc.IncidentID, err)
		}
	}
}

// Select opens the drawer on the incident with the given id.
func (d *Dashboard) Select(id string) bool {
	inc, ok := d.incs.Get(id)
	if !ok {
		return false
	}
	d.drawer.Select(inc)
	return true
}

// CloseDrawer starts the drawer's delayed close.
func (d *Dashboard) CloseDrawer() {
	d.drawer.RequestClose()
}

// Resolve marks the incident resolved.
func (d *Dashboard) Resolve(ctx context.Context, id string) error {
	return d.SetStatus(ctx, id, incident.StatusResolved)
}

// Reopen marks the incident open again.
func (d *Dashboard) Reopen(ctx context.Context, id string) error {
	return d.SetStatus(ctx, id, incident.StatusOpen)
}

// SetStatus applies the status change locally at once, then persists it with
// the backend. If the backend call fails, the store and the drawer copy are
// rolled back and the user is told.
func (d *Dashboard) SetStatus(ctx context.Context, id string, status incident.Status) error {
	prev, found := d.incs.UpdateStatus(id, status)
	if !found {
		d.notify(LevelError, "Incident %s is no longer in the list", id)
		return fmt.Errorf("set status of %s: %w", id, ErrUnknownIncident)
	}
	d.patchDrawer(id)
	d.changed()

	err := d.client.UpdateIncidentStatus(ctx, id, status)
	if err != nil {
		d.incs.UpdateStatus(id, prev)
		d.patchDrawer(id)
		d.changed()

		d.observe(status, "rolled_back")
		d.auditStatus(ctx, id, store.ActionStatusChangeFailed, map[string]string{
			"from":  string(prev),
			"to":    string(status),
			"error": err.Error(),
		})
		d.notify(LevelError, "Failed to mark incident %s as %s: %v", id, status, err)
		return fmt.Errorf("set status of %s: %w", id, err)
	}

	d.observe(status, "ok")
	d.auditStatus(ctx, id, store.ActionStatusChange, map[string]string{
		"from": string(prev),
		"to":   string(status),
	})
	if perr := d.bus.PublishActivity(ctx, bus.ActivityMessage{
		Kind:       bus.KindStatusChanged,
		IncidentID: id,
		Status:     string(status),
		PrevStatus: string(prev),
		Actor:      d.actor(),
		Timestamp:  time.Now().Unix(),
	}); perr != nil {
		d.logger.Printf("activity publish failed for %s: %v", id, perr)
	}
	d.notify(LevelSuccess, "Incident %s marked %s", id, status.Label())
	return nil
}

func (d *Dashboard) patchDrawer(id string) {
	if inc, ok := d.incs.Get(id); ok {
		d.drawer.Patch(inc)
	}
}

func (d *Dashboard) observe(status incident.Status, outcome string) {
	if d.recorder != nil {
		d.recorder.ObserveStatusChange(string(status), outcome)
	}
}

func (d *Dashboard) auditStatus(ctx context.Context, id, action string, details map[string]string) {
	if d.audit == nil {
		return
	}
	if err := d.audit.AddAuditEntry(ctx, store.AuditEntry{
		IncidentID: id,
		Action:     action,
		Actor:      d.actor(),
		Details:    details,
	}); err != nil {
		d.logger.Printf("audit %s %s: %v", action, id, err)
	}
}
