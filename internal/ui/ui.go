package ui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/dashboard"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/ingest"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/session"
)

// EmptyMessage is shown in place of the table rows when nothing matches.
const EmptyMessage = "No incidents found matching your filters."

const (
	pageLogin = "login"
	pageMain  = "main"
)

// Sessions is the sign-in surface the UI drives; *session.Manager satisfies it.
type Sessions interface {
	Current() session.Session
	Login(ctx context.Context, email, password string) (session.Session, error)
	Logout(ctx context.Context) (session.Session, error)
}

// Options configures the terminal UI.
type Options struct {
	Theme  string
	Logger *log.Logger
}

// UI represents the terminal user interface
type UI struct {
	app    *tview.Application
	dash   *dashboard.Dashboard
	sess   Sessions
	logger *log.Logger

	// Main page
	mainRoot    *tview.Flex
	header      *tview.TextView
	uploader    *tview.Flex
	fileInput   *tview.InputField
	fileInfo    *tview.TextView
	analyzeBtn  *tview.Button
	pasteBtn    *tview.Button
	statusDrop  *tview.DropDown
	sevDrop     *tview.DropDown
	searchInput *tview.InputField
	body        *tview.Flex
	table       *tview.Table
	drawer      *tview.Flex
	drawerText  *tview.TextView
	actionBtn   *tview.Button
	statusBar   *tview.TextView

	// Login page
	loginRoot  *tview.Flex
	loginForm  *tview.Form
	loginError *tview.TextView

	theme Theme

	// State owned by the UI goroutine
	page       string
	file       *ingest.LogFile
	rows       []incident.Incident
	dialog     bool
	submitting bool
	lastFocus  tview.Primitive
	lastStatus string

	running     atomic.Bool
	unsubscribe func()
	// async runs network work off the UI goroutine.
	async func(func())

	ctx    context.Context
	cancel context.CancelFunc
}

// NewUI builds the console around a dashboard and a session manager.
func NewUI(ctx context.Context, dash *dashboard.Dashboard, sess Sessions, opts Options) *UI {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	uiCtx, cancel := context.WithCancel(ctx)

	ui := &UI{
		app:    tview.NewApplication(),
		dash:   dash,
		sess:   sess,
		logger: logger,
		theme:  ThemeByName(opts.Theme),
		async:  func(fn func()) { go fn() },
		ctx:    uiCtx,
		cancel: cancel,
	}

	ui.setupLayout()
	ui.setupLogin()
	ui.setupKeybindings()
	ui.applyTheme()

	ui.unsubscribe = dash.Subscribe(ui.queueRender)
	dash.OnNotice(ui.showNotice)
	return ui
}

// Start runs the TUI until the context is cancelled or the user quits.
func (ui *UI) Start(ctx context.Context) error {
	ui.logger.Println("Starting TUI application")
	defer ui.unsubscribe()

	if session.IsAuthenticated(ui.sess.Current()) {
		ui.showMain()
		ui.refresh()
	} else {
		ui.showLogin()
	}

	go func() {
		select {
		case <-ctx.Done():
			ui.logger.Println("External context cancelled, stopping TUI")
		case <-ui.ctx.Done():
		}
		ui.cancel()
		ui.app.Stop()
	}()

	ui.running.Store(true)
	err := ui.app.Run()
	ui.running.Store(false)
	ui.logger.Printf("app.Run() returned with error: %v", err)
	return err
}

// Stop stops the TUI application
func (ui *UI) Stop() {
	ui.logger.Println("Stopping TUI application")
	ui.running.Store(false)
	ui.cancel()
	ui.app.Stop()
}

// queue runs fn on the UI goroutine. Before Run (and in tests) it runs inline.
func (ui *UI) queue(fn func()) {
	if ui.running.Load() {
		ui.app.QueueUpdateDraw(fn)
		return
	}
	fn()
}

func (ui *UI) queueRender() { ui.queue(ui.render) }

func (ui *UI) showNotice(n dashboard.Notice) {
	msg := tview.Escape(n.Message)
	ui.queue(func() {
		tag := ui.theme.TagTextPrimary
		switch n.Level {
		case dashboard.LevelSuccess:
			tag = ui.theme.TagSuccess
		case dashboard.LevelError:
			tag = ui.theme.TagError
		}
		ui.setStatusDirect("[%s]%s[-:-:-]", tag, msg)
	})
}

// setupLayout creates the main layout
func (ui *UI) setupLayout() {
	ui.header = tview.NewTextView().SetDynamicColors(true)

	ui.fileInput = tview.NewInputField().
		SetLabel("Log file: ").
		SetPlaceholder("path to a .log, .txt or .csv file, then Enter")
	ui.fileInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			ui.chooseFile(ui.fileInput.GetText())
		}
	})
	ui.fileInfo = tview.NewTextView().SetDynamicColors(true)
	ui.analyzeBtn = tview.NewButton("Upload & Analyze").SetSelectedFunc(ui.submitFile)
	ui.pasteBtn = tview.NewButton("Paste logs").SetSelectedFunc(ui.showPasteDialog)

	ui.uploader = tview.NewFlex().
		AddItem(ui.fileInput, 0, 3, false).
		AddItem(ui.fileInfo, 0, 2, false).
		AddItem(ui.analyzeBtn, 20, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.pasteBtn, 14, 0, false)
	ui.uploader.SetBorder(true).SetTitle(" Log Ingestion ").SetTitleAlign(tview.AlignLeft)

	ui.statusDrop = tview.NewDropDown().SetLabel("Status: ")
	statusLabels := make([]string, len(incident.StatusFilters))
	for i, f := range incident.StatusFilters {
		statusLabels[i] = statusFilterLabel(f)
	}
	ui.statusDrop.SetOptions(statusLabels, nil)
	ui.statusDrop.SetCurrentOption(0)
	ui.statusDrop.SetSelectedFunc(func(_ string, index int) {
		if index < 0 || index >= len(incident.StatusFilters) {
			return
		}
		ui.dash.SetStatusFilter(incident.StatusFilters[index])
		if ui.dash.ServerSideFilter() {
			ui.refresh()
		}
	})

	ui.sevDrop = tview.NewDropDown().SetLabel("Severity: ")
	sevLabels := make([]string, len(incident.SeverityFilters))
	for i, f := range incident.SeverityFilters {
		sevLabels[i] = severityFilterLabel(f)
	}
	ui.sevDrop.SetOptions(sevLabels, nil)
	ui.sevDrop.SetCurrentOption(0)
	ui.sevDrop.SetSelectedFunc(func(_ string, index int) {
		if index < 0 || index >= len(incident.SeverityFilters) {
			return
		}
		ui.dash.SetSeverityFilter(incident.SeverityFilters[index])
		if ui.dash.ServerSideFilter() {
			ui.refresh()
		}
	})

	ui.searchInput = tview.NewInputField().
		SetLabel("Search: ").
		SetPlaceholder("summary or service")
	ui.searchInput.SetChangedFunc(func(text string) {
		ui.dash.SetSearch(text)
	})
	ui.searchInput.SetDoneFunc(func(key tcell.Key) {
		ui.app.SetFocus(ui.table)
		ui.highlightFocus(ui.table)
	})

	filters := tview.NewFlex().
		AddItem(ui.statusDrop, 24, 0, false).
		AddItem(ui.sevDrop, 26, 0, false).
		AddItem(ui.searchInput, 0, 1, false)

	ui.table = tview.NewTable()
	ui.table.SetTitle(" Incidents ")
	ui.table.SetBorder(true)
	ui.table.SetTitleAlign(tview.AlignLeft)
	ui.table.SetSelectable(true, false)
	// Pin header row so it stays visible when scrolling.
	ui.table.SetFixed(1, 0)
	ui.table.SetSelectedFunc(func(row, _ int) {
		ui.selectRow(row)
	})

	ui.drawerText = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	ui.actionBtn = tview.NewButton("Mark as Resolved").SetSelectedFunc(ui.toggleSelected)
	ui.drawer = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.drawerText, 0, 1, false).
		AddItem(ui.actionBtn, 1, 0, false)
	ui.drawer.SetBorder(true).SetTitle(" Incident ").SetTitleAlign(tview.AlignLeft)

	// Drawer starts hidden; render resizes it when a selection is open.
	ui.body = tview.NewFlex().
		AddItem(ui.table, 0, 3, true).
		AddItem(ui.drawer, 0, 0, false)

	ui.statusBar = tview.NewTextView().SetDynamicColors(true)

	ui.mainRoot = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.header, 1, 0, false).
		AddItem(ui.uploader, 3, 0, false).
		AddItem(filters, 1, 0, false).
		AddItem(ui.body, 0, 1, true).
		AddItem(ui.statusBar, 1, 0, false)
}

// setupKeybindings installs the global key handler for the main page.
func (ui *UI) setupKeybindings() {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.page != pageMain || ui.dialog {
			return event
		}
		if ui.isTextEntryActive() {
			// Esc leaves text fields; everything else goes to the widget.
			if event.Key() == tcell.KeyEsc {
				ui.app.SetFocus(ui.table)
				ui.highlightFocus(ui.table)
				return nil
			}
			if event.Key() == tcell.KeyTab {
				ui.cycleFocus()
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyTab:
			ui.cycleFocus()
			return nil
		case tcell.KeyEsc:
			if ui.dash.Drawer().Visible() {
				ui.closeDrawer()
			} else {
				ui.setStatusDirect("Ready")
			}
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				ui.Stop()
				return nil
			case 'r':
				ui.refresh()
				return nil
			case 'x':
				ui.toggleSelected()
				return nil
			case 'u':
				ui.focus(ui.fileInput)
				return nil
			case 'p':
				ui.showPasteDialog()
				return nil
			case '/':
				ui.focus(ui.searchInput)
				return nil
			case 's':
				ui.focus(ui.statusDrop)
				return nil
			case 'v':
				ui.focus(ui.sevDrop)
				return nil
			case 't':
				ui.cycleTheme()
				return nil
			case 'L':
				ui.logout()
				return nil
			case '?', 'h':
				ui.showHelp()
				return nil
			case 'j':
				ui.moveSelection(1)
				return nil
			case 'k':
				ui.moveSelection(-1)
				return nil
			}
		}
		return event
	})
}

// isTextEntryActive reports whether a text or selection widget has focus,
// in which case single-letter shortcuts must reach the widget.
func (ui *UI) isTextEntryActive() bool {
	switch ui.app.GetFocus().(type) {
	case *tview.InputField, *tview.TextArea, *tview.DropDown, *tview.Form:
		return true
	}
	return false
}

func (ui *UI) focus(p tview.Primitive) {
	ui.app.SetFocus(p)
	ui.highlightFocus(p)
	ui.setStatusDirect("Ready")
}

// focusOrder lists the focusable widgets of the main page in Tab order.
func (ui *UI) focusOrder() []tview.Primitive {
	order := []tview.Primitive{ui.table}
	if ui.dash.Drawer().Visible() {
		order = append(order, ui.actionBtn)
	}
	return append(order, ui.fileInput, ui.analyzeBtn, ui.pasteBtn, ui.statusDrop, ui.sevDrop, ui.searchInput)
}

// cycleFocus cycles focus between UI components
func (ui *UI) cycleFocus() {
	order := ui.focusOrder()
	current := ui.app.GetFocus()
	next := order[0]
	for i, p := range order {
		if p == current {
			next = order[(i+1)%len(order)]
			break
		}
	}
	ui.focus(next)
}

func (ui *UI) highlightFocus(focused tview.Primitive) {
	ui.table.SetBorderColor(ui.theme.Border)
	ui.drawer.SetBorderColor(ui.theme.Border)
	ui.uploader.SetBorderColor(ui.theme.Border)

	switch focused {
	case ui.table:
		ui.table.SetBorderColor(ui.theme.FocusBorder)
	case ui.actionBtn:
		ui.drawer.SetBorderColor(ui.theme.FocusBorder)
	case ui.fileInput, ui.analyzeBtn, ui.pasteBtn:
		ui.uploader.SetBorderColor(ui.theme.FocusBorder)
	}
}

func (ui *UI) moveSelection(delta int) {
	if len(ui.rows) == 0 {
		return
	}
	row, _ := ui.table.GetSelection()
	row += delta
	if row < 1 {
		row = 1
	}
	if row > len(ui.rows) {
		row = len(ui.rows)
	}
	ui.table.Select(row, 0)
}

// showMain switches to the dashboard page.
func (ui *UI) showMain() {
	ui.page = pageMain
	ui.dialog = false
	ui.app.SetRoot(ui.mainRoot, true)
	ui.app.SetFocus(ui.table)
	ui.render()
	ui.highlightFocus(ui.table)
	ui.setStatusDirect("Ready")
}

// render redraws every widget that depends on dashboard state.
// Input widgets (dropdowns, search) own their values and are left alone.
func (ui *UI) render() {
	if ui.page != pageMain {
		return
	}
	ui.renderHeader()
	ui.renderUploader()
	ui.renderTable()
	ui.renderDrawer()
}

func (ui *UI) renderHeader() {
	var sb strings.Builder
	fmt.Fprintf(&sb, " [%s::b]AIOps Incident Co-Pilot[-:-:-]", ui.theme.TagAccent)
	if ui.dash.Loading() {
		fmt.Fprintf(&sb, "  [%s]loading incidents...[-]", ui.theme.TagMuted)
	}
	if a, ok := ui.sess.Current().(session.Authenticated); ok {
		fmt.Fprintf(&sb, "  [%s]|[-] %s  [%s]L[-]:logout",
			ui.theme.TagMuted, tview.Escape(a.User.DisplayName()), ui.theme.TagAccent)
	}
	ui.header.SetText(sb.String())
}

// analyzeEnabled mirrors the uploader's disabled state: a file is required
// and no other submission may be pending.
func (ui *UI) analyzeEnabled() bool {
	return ui.file != nil && !ui.busy()
}

// busy is set from the moment a submission is requested on the UI goroutine
// until the controller has finished it.
func (ui *UI) busy() bool {
	return ui.submitting || ui.dash.InFlight()
}

// startSubmission reserves the submit controls and runs fn off the UI goroutine.
func (ui *UI) startSubmission(fn func()) {
	ui.submitting = true
	ui.renderUploader()
	ui.async(func() {
		fn()
		ui.queue(func() {
			ui.submitting = false
			ui.renderUploader()
		})
	})
}

func (ui *UI) renderUploader() {
	if ui.file == nil {
		ui.fileInfo.SetText(fmt.Sprintf(" [%s]No file selected[-]", ui.theme.TagMuted))
	} else {
		ui.fileInfo.SetText(fmt.Sprintf(" %s [%s]%s[-]",
			tview.Escape(ui.file.Name), ui.theme.TagMuted, ui.file.SizeLabel()))
	}

	if ui.busy() {
		ui.analyzeBtn.SetLabel("Uploading...")
		ui.pasteBtn.SetLabel("Analyzing...")
	} else {
		ui.analyzeBtn.SetLabel("Upload & Analyze")
		ui.pasteBtn.SetLabel("Paste logs")
	}
	if ui.analyzeEnabled() {
		ui.analyzeBtn.SetLabelColor(ui.theme.SelectionFg)
		ui.analyzeBtn.SetBackgroundColor(ui.theme.SelectionBg)
	} else {
		ui.analyzeBtn.SetLabelColor(ui.theme.TextMuted)
		ui.analyzeBtn.SetBackgroundColor(ui.theme.Surface)
	}
}

func (ui *UI) renderTable() {
	prevID := ""
	if row, _ := ui.table.GetSelection(); row >= 1 && row <= len(ui.rows) {
		prevID = ui.rows[row-1].IncidentID
	}

	ui.rows = ui.dash.Visible()
	ui.table.Clear()

	headers := []string{"Severity", "Status", "Service", "Summary", "Created"}
	for col, h := range headers {
		ui.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(ui.theme.TableHeader).
			SetBackgroundColor(ui.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}
	ui.table.SetTitle(fmt.Sprintf(" Incidents (%d/%d) ", len(ui.rows), ui.dash.Store().Len()))

	if len(ui.rows) == 0 {
		msg := EmptyMessage
		if ui.dash.Loading() {
			msg = "Loading..."
		}
		ui.table.SetCell(1, 0, tview.NewTableCell(msg).
			SetTextColor(ui.theme.TextMuted).
			SetSelectable(false).
			SetExpansion(1))
		return
	}

	selectRow := 1
	for i, inc := range ui.rows {
		row := i + 1
		sevColor := ui.theme.SeverityColor(inc.Severity)
		statusColor := ui.theme.TextPrimary
		if inc.IsResolved() {
			statusColor = ui.theme.TextMuted
		}
		ui.table.SetCell(row, 0, tview.NewTableCell(strings.ToUpper(string(inc.Severity))).
			SetTextColor(sevColor).SetAttributes(tcell.AttrBold))
		ui.table.SetCell(row, 1, tview.NewTableCell(inc.Status.Label()).SetTextColor(statusColor))
		ui.table.SetCell(row, 2, tview.NewTableCell(tview.Escape(inc.Service)).SetTextColor(ui.theme.TextPrimary))
		ui.table.SetCell(row, 3, tview.NewTableCell(tview.Escape(inc.Summary)).
			SetTextColor(ui.theme.TextPrimary).SetExpansion(1).SetMaxWidth(80))
		ui.table.SetCell(row, 4, tview.NewTableCell(inc.CreatedAt).SetTextColor(ui.theme.TextMuted))
		if inc.IncidentID == prevID {
			selectRow = row
		}
	}
	ui.table.Select(selectRow, 0)
}

func (ui *UI) renderDrawer() {
	d := ui.dash.Drawer()
	inc, ok := d.Selected()
	if !d.Visible() || !ok {
		ui.body.ResizeItem(ui.drawer, 0, 0)
		if ui.app.GetFocus() == ui.actionBtn {
			ui.app.SetFocus(ui.table)
			ui.highlightFocus(ui.table)
		}
		return
	}
	ui.body.ResizeItem(ui.drawer, 0, 2)
	ui.drawer.SetTitle(fmt.Sprintf(" %s Incident ", tview.Escape(inc.Service)))
	ui.drawerText.SetText(drawerBody(ui.theme, inc))
	ui.drawerText.ScrollToBeginning()
	ui.actionBtn.SetLabel(actionLabel(inc))
}

// actionLabel is the drawer's single action for the incident's status.
func actionLabel(inc incident.Incident) string {
	if inc.IsResolved() {
		return "Reopen Incident"
	}
	return "Mark as Resolved"
}

func drawerBody(t Theme, inc incident.Incident) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s::b]%s Incident[-:-:-]\n", t.TagAccent, tview.Escape(inc.Service))
	fmt.Fprintf(&sb, "[%s]ID:[-] %s\n", t.TagMuted, tview.Escape(inc.IncidentID))
	fmt.Fprintf(&sb, "[%s]Severity:[-] [%s]%s[-]   [%s]Status:[-] %s\n",
		t.TagMuted, t.SeverityTag(inc.Severity), strings.ToUpper(string(inc.Severity)),
		t.TagMuted, inc.Status.Label())
	if inc.CreatedAt != "" || inc.LastUpdatedAt != "" {
		fmt.Fprintf(&sb, "[%s]Created:[-] %s   [%s]Updated:[-] %s\n",
			t.TagMuted, inc.CreatedAt, t.TagMuted, inc.LastUpdatedAt)
	}
	section := func(title, text string) {
		fmt.Fprintf(&sb, "\n[%s::b]%s[-:-:-]\n%s\n", t.TagMuted, title, tview.Escape(text))
	}
	section("SUMMARY", inc.Summary)
	section("ROOT CAUSE ANALYSIS", inc.RootCause)
	section("RECOMMENDED RUNBOOK", inc.RunbookSteps)
	return sb.String()
}

func statusFilterLabel(f incident.StatusFilter) string {
	if f.QueryValue() == "" {
		return "All statuses"
	}
	return incident.Status(f).Label()
}

func severityFilterLabel(f incident.SeverityFilter) string {
	v := f.QueryValue()
	if v == "" {
		return "All severities"
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

// selectRow opens the drawer on the incident at a table row.
func (ui *UI) selectRow(row int) {
	idx := row - 1
	if idx < 0 || idx >= len(ui.rows) {
		return
	}
	if !ui.dash.Select(ui.rows[idx].IncidentID) {
		ui.setStatusDirect("[%s]Incident is no longer in the list[-:-:-]", ui.theme.TagError)
	}
}

func (ui *UI) closeDrawer() {
	ui.dash.CloseDrawer()
	ui.app.SetFocus(ui.table)
	ui.highlightFocus(ui.table)
}

// toggleSelected resolves or reopens the drawer's incident, or the table's
// current row when the drawer is closed.
func (ui *UI) toggleSelected() {
	inc, ok := ui.dash.Drawer().Selected()
	if !ok || !ui.dash.Drawer().Visible() {
		row, _ := ui.table.GetSelection()
		if row < 1 || row > len(ui.rows) {
			return
		}
		inc = ui.rows[row-1]
	}
	target := inc.Status.Toggle()
	id := inc.IncidentID
	ui.async(func() {
		if err := ui.dash.SetStatus(ui.ctx, id, target); err != nil {
			ui.logger.Printf("status change for %s failed: %v", id, err)
		}
	})
}

// refresh reloads the incident list in the background.
func (ui *UI) refresh() {
	ui.setStatusDirect("[%s]Refreshing incidents...[-:-:-]", ui.theme.TagAccent)
	ui.async(func() {
		if err := ui.dash.Load(ui.ctx); err != nil {
			ui.logger.Printf("Failed to load incidents: %v", err)
			return
		}
		n := ui.dash.Store().Len()
		ui.queue(func() {
			ui.setStatusDirect("[%s]Loaded %d incident(s)[-:-:-]", ui.theme.TagSuccess, n)
		})
	})
}

// chooseFile selects the file the uploader will submit.
func (ui *UI) chooseFile(path string) {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		return
	}
	f, err := ingest.OpenLogFile(path)
	if err != nil {
		ui.setStatusDirect("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
		return
	}
	ui.file = &f
	ui.renderUploader()
	ui.setStatusDirect("Selected %s (%s)", tview.Escape(f.Name), f.SizeLabel())
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// submitFile uploads the selected file. It does nothing while disabled.
func (ui *UI) submitFile() {
	if ui.file == nil {
		ui.setStatusDirect("[%s]Select a log file first (u)[-:-:-]", ui.theme.TagMuted)
		return
	}
	if !ui.analyzeEnabled() {
		return
	}
	f := *ui.file
	ui.startSubmission(func() {
		if _, err := ui.dash.SubmitFile(ui.ctx, f); err != nil {
			ui.logger.Printf("submit %s failed: %v", f.Name, err)
		}
	})
}

// submitText analyzes pasted log text. Blank text is not submitted.
func (ui *UI) submitText(text string) {
	if strings.TrimSpace(text) == "" || ui.busy() {
		return
	}
	ui.startSubmission(func() {
		if _, err := ui.dash.SubmitText(ui.ctx, text); err != nil {
			ui.logger.Printf("submit text failed: %v", err)
		}
	})
}

func (ui *UI) logout() {
	ui.async(func() {
		if _, err := ui.sess.Logout(ui.ctx); err != nil {
			ui.logger.Printf("logout: %v", err)
		}
		ui.queue(func() {
			ui.dash.CloseDrawer()
			ui.showLogin()
		})
	})
}

func (ui *UI) cycleTheme() {
	ui.theme = ThemeByName(nextThemeName(ui.theme.Name))
	ui.applyTheme()
	ui.render()
	ui.setStatusDirect("[%s]Theme: %s[-:-:-]", ui.theme.TagAccent, ui.theme.Name)
}

// applyTheme pushes theme colors to widgets
func (ui *UI) applyTheme() {
	t := ui.theme
	for _, box := range []*tview.Box{
		ui.header.Box, ui.fileInfo.Box, ui.statusBar.Box, ui.drawerText.Box,
		ui.uploader.Box, ui.drawer.Box, ui.table.Box, ui.loginRoot.Box,
	} {
		box.SetBackgroundColor(t.Surface)
	}
	ui.header.SetTextColor(t.TextPrimary)
	ui.statusBar.SetTextColor(t.TextPrimary)
	ui.drawerText.SetTextColor(t.TextPrimary)

	for _, in := range []*tview.InputField{ui.fileInput, ui.searchInput} {
		in.SetBackgroundColor(t.Surface)
		in.SetLabelColor(t.TextPrimary)
		in.SetFieldBackgroundColor(t.SelectionBg)
		in.SetFieldTextColor(t.SelectionFg)
		in.SetPlaceholderTextColor(t.TextMuted)
	}
	for _, dd := range []*tview.DropDown{ui.statusDrop, ui.sevDrop} {
		dd.SetBackgroundColor(t.Surface)
		dd.SetLabelColor(t.TextPrimary)
		dd.SetFieldBackgroundColor(t.SelectionBg)
		dd.SetFieldTextColor(t.SelectionFg)
	}
	for _, b := range []*tview.Button{ui.pasteBtn, ui.actionBtn} {
		b.SetBackgroundColor(t.SelectionBg)
		b.SetLabelColor(t.SelectionFg)
		b.SetBackgroundColorActivated(t.FocusBorder)
		b.SetLabelColorActivated(t.Surface)
	}
	ui.analyzeBtn.SetBackgroundColorActivated(t.FocusBorder)
	ui.analyzeBtn.SetLabelColorActivated(t.Surface)

	ui.table.SetSelectedStyle(tcell.StyleDefault.Background(t.SelectionBg).Foreground(t.SelectionFg))

	ui.loginForm.SetBackgroundColor(t.Surface)
	ui.loginForm.SetFieldBackgroundColor(t.SelectionBg)
	ui.loginForm.SetFieldTextColor(t.SelectionFg)
	ui.loginForm.SetLabelColor(t.TextPrimary)
	ui.loginForm.SetButtonBackgroundColor(t.SelectionBg)
	ui.loginForm.SetButtonTextColor(t.SelectionFg)
	ui.loginForm.SetBorderColor(t.FocusBorder)
	ui.loginError.SetBackgroundColor(t.Surface)

	ui.highlightFocus(ui.app.GetFocus())
}

// setStatusDirect updates the status bar. Call it only on the UI goroutine.
func (ui *UI) setStatusDirect(format string, args ...interface{}) {
	ui.lastStatus = fmt.Sprintf(format, args...)
	ui.statusBar.SetText(fmt.Sprintf("[%s]%s[-] [%s]|[-] %s [%s]|[-] %s",
		ui.theme.TagMuted, time.Now().Format("15:04:05"),
		ui.theme.TagMuted, ui.lastStatus,
		ui.theme.TagMuted, ui.buildShortcutHints()))
}

func (ui *UI) buildShortcutHints() string {
	type kv struct{ key, label string }
	hints := []kv{{"?", "help"}}
	if ui.app.GetFocus() == ui.table {
		hints = append(hints, kv{"Enter", "open"})
	}
	if ui.dash.Drawer().Visible() {
		if inc, ok := ui.dash.Drawer().Selected(); ok && inc.IsResolved() {
			hints = append(hints, kv{"x", "reopen"})
		} else {
			hints = append(hints, kv{"x", "resolve"})
		}
		hints = append(hints, kv{"Esc", "close"})
	}
	hints = append(hints,
		kv{"u", "file"},
		kv{"p", "paste"},
		kv{"/", "search"},
		kv{"r", "refresh"},
		kv{"q", "quit"},
	)

	const maxTokens = 8
	if len(hints) > maxTokens {
		hints = hints[:maxTokens]
	}
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = fmt.Sprintf("[%s]%s[-]:%s", ui.theme.TagAccent, h.key, h.label)
	}
	return strings.Join(parts, " ")
}
