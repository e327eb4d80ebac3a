package ui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/api"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/dashboard"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	list     []incident.Incident
	analyze  []incident.Incident
	patchErr error
	uploads  int
	analyzed int
	fetches  int
	patches  []string
}

func (f *fakeBackend) UploadLog(context.Context, string, io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return "u1", nil
}

func (f *fakeBackend) AnalyzeLogs(context.Context, api.AnalyzeRequest) ([]incident.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzed++
	return f.analyze, nil
}

func (f *fakeBackend) FetchIncidents(context.Context, string, string) ([]incident.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.list, nil
}

func (f *fakeBackend) UpdateIncidentStatus(_ context.Context, id string, status incident.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, id+"="+string(status))
	return f.patchErr
}

type fakeSessions struct {
	current  session.Session
	loginErr error
	logouts  int
}

func (f *fakeSessions) Current() session.Session { return f.current }

func (f *fakeSessions) Login(_ context.Context, email, _ string) (session.Session, error) {
	if f.loginErr != nil {
		return f.current, f.loginErr
	}
	f.current = session.Authenticated{Token: "tok", User: session.User{Email: email, Name: "Ana Lima"}}
	return f.current, nil
}

func (f *fakeSessions) Logout(context.Context) (session.Session, error) {
	f.logouts++
	f.current = session.Anonymous{}
	return f.current, nil
}

func noopScheduler(time.Duration, func()) func() bool {
	return func() bool { return true }
}

func seedIncidents() []incident.Incident {
	return []incident.Incident{
		{IncidentID: "i1", Status: incident.StatusOpen, Severity: incident.SeverityHigh, Service: "checkout", Summary: "500 spike", RootCause: "pool exhausted", RunbookSteps: "1. Restart"},
		{IncidentID: "i2", Status: incident.StatusResolved, Severity: incident.SeverityLow, Service: "web", Summary: "404 noise"},
	}
}

func newTestUI(t *testing.T, backend *fakeBackend, sess *fakeSessions) *UI {
	t.Helper()
	t.Setenv("TERM", "xterm-256color")
	dash := dashboard.New(backend, dashboard.Options{Scheduler: noopScheduler})
	ui := NewUI(context.Background(), dash, sess, Options{Theme: "dark"})
	ui.async = func(fn func()) { fn() }
	t.Cleanup(ui.cancel)
	return ui
}

func authed() *fakeSessions {
	return &fakeSessions{current: session.Authenticated{Token: "tok", User: session.User{Name: "Ana Lima"}}}
}

func TestLoginShowsDashboard(t *testing.T) {
	backend := &fakeBackend{list: seedIncidents()}
	sess := &fakeSessions{current: session.Anonymous{}}
	ui := newTestUI(t, backend, sess)

	ui.showLogin()
	if ui.page != pageLogin {
		t.Fatalf("expected login page, got %q", ui.page)
	}

	// Missing credentials never reach the backend.
	ui.submitLogin()
	if !strings.Contains(ui.loginError.GetText(true), "required") {
		t.Fatalf("expected required-field error, got %q", ui.loginError.GetText(true))
	}

	ui.loginForm.GetFormItemByLabel("Email").(*tview.InputField).SetText("ana.lima@example.com")
	ui.loginForm.GetFormItemByLabel("Password").(*tview.InputField).SetText("secret")
	ui.submitLogin()

	if ui.page != pageMain {
		t.Fatalf("expected main page after login, got %q", ui.page)
	}
	if !strings.Contains(ui.header.GetText(true), "Ana Lima") {
		t.Errorf("header should show the user name, got %q", ui.header.GetText(true))
	}
	if backend.fetches != 1 {
		t.Errorf("expected one fetch after login, got %d", backend.fetches)
	}
	if len(ui.rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(ui.rows))
	}
}

func TestLoginFailureStaysOnLoginPage(t *testing.T) {
	sess := &fakeSessions{current: session.Anonymous{}, loginErr: errors.New("invalid credentials")}
	ui := newTestUI(t, &fakeBackend{}, sess)
	ui.showLogin()

	ui.loginForm.GetFormItemByLabel("Email").(*tview.InputField).SetText("a@b.c")
	ui.loginForm.GetFormItemByLabel("Password").(*tview.InputField).SetText("nope")
	ui.submitLogin()

	if ui.page != pageLogin {
		t.Fatalf("expected to stay on login page, got %q", ui.page)
	}
	if !strings.Contains(ui.loginError.GetText(true), "invalid credentials") {
		t.Errorf("unexpected login error text %q", ui.loginError.GetText(true))
	}
}

func TestEmptyListMessage(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{}, authed())
	ui.showMain()
	ui.refresh()

	if got := ui.table.GetCell(1, 0).Text; got != EmptyMessage {
		t.Fatalf("expected empty message, got %q", got)
	}
	// The placeholder row cannot be opened.
	ui.selectRow(1)
	if ui.dash.Drawer().Visible() {
		t.Error("drawer should stay closed on the placeholder row")
	}
}

func TestTableRowsUseSeverityColors(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{list: seedIncidents()}, authed())
	ui.showMain()
	ui.refresh()

	if ui.table.GetRowCount() != 3 {
		t.Fatalf("expected header + 2 rows, got %d", ui.table.GetRowCount())
	}
	sev := ui.table.GetCell(1, 0)
	if sev.Text != "HIGH" || sev.Color != ui.theme.SeverityHigh {
		t.Errorf("unexpected severity cell %q color %v", sev.Text, sev.Color)
	}
	if got := ui.table.GetCell(2, 1).Text; got != "Resolved" {
		t.Errorf("expected Resolved label, got %q", got)
	}
	if !strings.Contains(ui.lastStatus, "Loaded 2 incident(s)") {
		t.Errorf("unexpected status %q", ui.lastStatus)
	}
}

func TestSelectAndResolveFromDrawer(t *testing.T) {
	backend := &fakeBackend{list: seedIncidents()}
	ui := newTestUI(t, backend, authed())
	ui.showMain()
	ui.refresh()

	ui.selectRow(1)
	if !ui.dash.Drawer().Visible() {
		t.Fatal("drawer should be open after selecting a row")
	}
	if got := ui.actionBtn.GetLabel(); got != "Mark as Resolved" {
		t.Fatalf("expected resolve action, got %q", got)
	}
	body := ui.drawerText.GetText(true)
	for _, want := range []string{"checkout Incident", "ID: i1", "pool exhausted", "1. Restart"} {
		if !strings.Contains(body, want) {
			t.Errorf("drawer body missing %q:\n%s", want, body)
		}
	}

	ui.toggleSelected()
	if len(backend.patches) != 1 || backend.patches[0] != "i1=resolved" {
		t.Fatalf("unexpected patches %v", backend.patches)
	}
	if got := ui.actionBtn.GetLabel(); got != "Reopen Incident" {
		t.Errorf("expected reopen action after resolve, got %q", got)
	}
	if got := ui.table.GetCell(1, 1).Text; got != "Resolved" {
		t.Errorf("table row not updated, got %q", got)
	}
	if !strings.Contains(ui.lastStatus, "marked Resolved") {
		t.Errorf("unexpected status %q", ui.lastStatus)
	}
}

func TestFailedResolveRollsBack(t *testing.T) {
	backend := &fakeBackend{list: seedIncidents(), patchErr: errors.New("boom")}
	ui := newTestUI(t, backend, authed())
	ui.showMain()
	ui.refresh()

	ui.selectRow(1)
	ui.toggleSelected()

	if got := ui.actionBtn.GetLabel(); got != "Mark as Resolved" {
		t.Errorf("action should roll back, got %q", got)
	}
	if got := ui.table.GetCell(1, 1).Text; got != "Open" {
		t.Errorf("row should roll back, got %q", got)
	}
	if !strings.Contains(ui.lastStatus, "Failed to mark") {
		t.Errorf("expected error notice, got %q", ui.lastStatus)
	}
}

func TestCloseDrawer(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{list: seedIncidents()}, authed())
	ui.showMain()
	ui.refresh()
	ui.selectRow(2)

	ui.closeDrawer()
	if ui.dash.Drawer().Visible() {
		t.Fatal("drawer should be hidden after close")
	}
	if ui.app.GetFocus() != ui.table {
		t.Error("focus should return to the table")
	}
	if strings.Contains(ui.buildShortcutHints(), "close") {
		t.Error("close hint should disappear with the drawer")
	}
}

func TestFiltersNarrowRows(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{list: seedIncidents()}, authed())
	ui.showMain()
	ui.refresh()

	ui.searchInput.SetText("WEB")
	if len(ui.rows) != 1 || ui.rows[0].IncidentID != "i2" {
		t.Fatalf("search should keep only i2, got %v", ui.rows)
	}

	ui.searchInput.SetText("")
	ui.statusDrop.SetCurrentOption(1) // Open
	if len(ui.rows) != 1 || ui.rows[0].IncidentID != "i1" {
		t.Fatalf("status filter should keep only i1, got %v", ui.rows)
	}

	ui.sevDrop.SetCurrentOption(1) // Low
	if got := ui.table.GetCell(1, 0).Text; got != EmptyMessage {
		t.Errorf("expected empty message, got %q", got)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	backend := &fakeBackend{analyze: []incident.Incident{
		{IncidentID: "n1", Status: incident.StatusOpen, Severity: incident.SeverityCritical, Service: "payments", Summary: "OOM"},
	}}
	ui := newTestUI(t, backend, authed())
	ui.showMain()

	ui.submitFile()
	if backend.uploads != 0 {
		t.Fatal("upload must not run without a selected file")
	}
	if ui.analyzeEnabled() {
		t.Fatal("analyze should be disabled without a file")
	}

	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	ui.chooseFile(path)
	if !strings.Contains(ui.fileInfo.GetText(true), "app.log") || !strings.Contains(ui.fileInfo.GetText(true), "2.0 KB") {
		t.Fatalf("unexpected file info %q", ui.fileInfo.GetText(true))
	}

	ui.submitFile()
	if backend.uploads != 1 || backend.analyzed != 1 {
		t.Fatalf("expected one upload and analyze, got %d/%d", backend.uploads, backend.analyzed)
	}
	if len(ui.rows) != 1 || ui.rows[0].IncidentID != "n1" {
		t.Errorf("new incident should be listed, got %v", ui.rows)
	}
	if got := ui.analyzeBtn.GetLabel(); got != "Upload & Analyze" {
		t.Errorf("button label should reset, got %q", got)
	}
}

func TestRepeatedSubmitRunsOnce(t *testing.T) {
	backend := &fakeBackend{}
	ui := newTestUI(t, backend, authed())
	var pending []func()
	ui.async = func(fn func()) { pending = append(pending, fn) }
	ui.showMain()

	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	ui.chooseFile(path)

	ui.submitFile()
	ui.submitFile()
	ui.submitText("ERROR 500 upstream")
	if ui.analyzeEnabled() {
		t.Error("analyze should be disabled while a submission is pending")
	}
	if got := ui.analyzeBtn.GetLabel(); got != "Uploading..." {
		t.Errorf("expected busy label, got %q", got)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one queued submission, got %d", len(pending))
	}

	pending[0]()
	if backend.uploads != 1 || backend.analyzed != 1 {
		t.Fatalf("expected one upload and analyze, got %d/%d", backend.uploads, backend.analyzed)
	}
	if !ui.analyzeEnabled() {
		t.Error("analyze should be enabled again once the submission finished")
	}
	if got := ui.analyzeBtn.GetLabel(); got != "Upload & Analyze" {
		t.Errorf("button label should reset, got %q", got)
	}
}

func TestNoticeUsesCurrentTheme(t *testing.T) {
	backend := &fakeBackend{}
	ui := newTestUI(t, backend, authed())
	ui.showMain()

	ui.cycleTheme()
	ui.submitText("ERROR 500 upstream")
	if !strings.Contains(ui.lastStatus, ui.theme.TagSuccess) || !strings.Contains(ui.lastStatus, "Analysis complete") {
		t.Errorf("expected success notice in the %s theme, got %q", ui.theme.Name, ui.lastStatus)
	}
}

func TestChooseMissingFile(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{}, authed())
	ui.showMain()

	ui.chooseFile(filepath.Join(t.TempDir(), "missing.log"))
	if ui.file != nil {
		t.Fatal("missing file must not be selected")
	}
	if !strings.Contains(ui.lastStatus, "missing.log") {
		t.Errorf("expected error mentioning the file, got %q", ui.lastStatus)
	}
}

func TestBlankPasteIsNotSubmitted(t *testing.T) {
	backend := &fakeBackend{}
	ui := newTestUI(t, backend, authed())
	ui.showMain()

	ui.submitText("  \n\t ")
	if backend.analyzed != 0 {
		t.Fatalf("blank text must not be analyzed, got %d calls", backend.analyzed)
	}

	ui.submitText("ERROR 500 upstream")
	if backend.analyzed != 1 {
		t.Errorf("expected one analyze call, got %d", backend.analyzed)
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	sess := authed()
	ui := newTestUI(t, &fakeBackend{list: seedIncidents()}, sess)
	ui.showMain()

	ui.logout()
	if sess.logouts != 1 {
		t.Fatalf("expected one logout, got %d", sess.logouts)
	}
	if ui.page != pageLogin {
		t.Errorf("expected login page, got %q", ui.page)
	}
}

func TestGlobalKeys(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{list: seedIncidents()}, authed())
	ui.showMain()
	ui.refresh()
	capture := ui.app.GetInputCapture()

	if ev := capture(tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone)); ev != nil {
		t.Fatal("j should be handled")
	}
	if row, _ := ui.table.GetSelection(); row != 2 {
		t.Errorf("expected row 2 after j, got %d", row)
	}

	capture(tcell.NewEventKey(tcell.KeyRune, '/', tcell.ModNone))
	if ui.app.GetFocus() != ui.searchInput {
		t.Fatal("/ should focus search")
	}
	// Letters typed into the search box must reach the field.
	if ev := capture(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)); ev == nil {
		t.Error("q should pass through while typing")
	}
	capture(tcell.NewEventKey(tcell.KeyEsc, 0, tcell.ModNone))
	if ui.app.GetFocus() != ui.table {
		t.Error("Esc should leave the search field")
	}

	capture(tcell.NewEventKey(tcell.KeyRune, '?', tcell.ModNone))
	if !ui.dialog {
		t.Fatal("? should open help")
	}
	ui.restoreMain()
	if ui.dialog || ui.app.GetFocus() != ui.table {
		t.Error("help should close back to the table")
	}
}

func TestThemes(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("COLORTERM", "")

	if got := ThemeByName("light").Name; got != "light" {
		t.Errorf("expected light, got %s", got)
	}
	if got := ThemeByName("unknown").Name; got != "dark" {
		t.Errorf("expected dark fallback, got %s", got)
	}
	if nextThemeName("dark") != "light" || nextThemeName("high-contrast") != "dark" {
		t.Error("theme cycle order is wrong")
	}

	t.Setenv("TERM", "linux")
	if got := ThemeByName("dark").Name; got != "high-contrast" {
		t.Errorf("limited terminals should get high-contrast, got %s", got)
	}

	dark := themeDark()
	if dark.SeverityColor(incident.SeverityCritical) != dark.SeverityCritical {
		t.Error("critical severity color mismatch")
	}
	if dark.SeverityTag(incident.SeverityLow) != dark.TagSeverityLow {
		t.Error("low severity tag mismatch")
	}
}
