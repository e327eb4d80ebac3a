package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// setupLogin builds the sign-in page shown while the session is anonymous.
func (ui *UI) setupLogin() {
	ui.loginForm = tview.NewForm()
	ui.loginForm.SetBorder(true).SetTitle(" AIOps Incident Co-Pilot ").SetTitleAlign(tview.AlignCenter)
	ui.loginForm.AddInputField("Email", "", 36, nil, nil)
	ui.loginForm.AddPasswordField("Password", "", 36, '*', nil)
	ui.loginForm.AddButton("Sign in", ui.submitLogin)
	ui.loginForm.AddButton("Quit", ui.Stop)
	ui.loginForm.SetCancelFunc(ui.Stop)

	ui.loginError = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	column := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(ui.loginForm, 9, 0, true).
		AddItem(ui.loginError, 2, 0, false).
		AddItem(nil, 0, 1, false)
	ui.loginRoot = tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(column, 56, 0, true).
		AddItem(nil, 0, 1, false)
}

// showLogin switches to the sign-in page with an empty password field.
func (ui *UI) showLogin() {
	ui.page = pageLogin
	ui.dialog = false
	if pw, ok := ui.loginForm.GetFormItemByLabel("Password").(*tview.InputField); ok {
		pw.SetText("")
	}
	ui.app.SetRoot(ui.loginRoot, true)
	ui.app.SetFocus(ui.loginForm)
}

func (ui *UI) loginField(label string) string {
	if in, ok := ui.loginForm.GetFormItemByLabel(label).(*tview.InputField); ok {
		return in.GetText()
	}
	return ""
}

func (ui *UI) setLoginError(format string, args ...interface{}) {
	ui.loginError.SetText(fmt.Sprintf("[%s]%s[-]", ui.theme.TagError, tview.Escape(fmt.Sprintf(format, args...))))
}

// submitLogin exchanges the form's credentials for a session.
func (ui *UI) submitLogin() {
	email := strings.TrimSpace(ui.loginField("Email"))
	password := ui.loginField("Password")
	if email == "" || password == "" {
		ui.setLoginError("Email and password are required")
		return
	}
	ui.loginError.SetText(fmt.Sprintf("[%s]Signing in...[-]", ui.theme.TagMuted))

	ui.async(func() {
		_, err := ui.sess.Login(ui.ctx, email, password)
		ui.queue(func() {
			if err != nil {
				ui.logger.Printf("login failed for %s: %v", email, err)
				ui.setLoginError("Login failed: %v", err)
				return
			}
			ui.loginError.SetText("")
			ui.showMain()
			ui.refresh()
		})
	})
}

// showPasteDialog opens a text area for raw log text.
func (ui *UI) showPasteDialog() {
	if ui.busy() {
		return
	}
	form := tview.NewForm()
	form.SetTitle(" Paste Logs ")
	form.SetBorder(true)
	form.SetBackgroundColor(ui.theme.Surface)
	form.SetFieldBackgroundColor(ui.theme.SelectionBg)
	form.SetFieldTextColor(ui.theme.SelectionFg)
	form.SetLabelColor(ui.theme.TextPrimary)
	form.SetButtonBackgroundColor(ui.theme.SelectionBg)
	form.SetButtonTextColor(ui.theme.SelectionFg)
	form.SetBorderColor(ui.theme.FocusBorder)

	area := tview.NewTextArea().SetPlaceholder("Paste log lines here")
	area.SetLabel("Logs")
	area.SetSize(16, 0)
	// Enter inserts newlines; Tab and Shift+Tab move between form items.
	area.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyTab:
			form.SetFocus(1)
			ui.app.SetFocus(form)
			return nil
		case tcell.KeyBacktab:
			form.SetFocus(form.GetFormItemCount() + form.GetButtonCount() - 1)
			ui.app.SetFocus(form)
			return nil
		}
		return ev
	})
	form.AddFormItem(area)
	form.AddButton("Analyze", func() {
		text := area.GetText()
		ui.restoreMain()
		ui.submitText(text)
	})
	form.AddButton("Cancel", ui.restoreMain)
	form.SetCancelFunc(ui.restoreMain)

	ui.showDialog(form)
	ui.setStatusDirect("[%s]Paste logs: Enter=newline, Tab moves to Analyze, Esc cancels[-:-:-]", ui.theme.TagAccent)
}

// showHelp lists the keyboard shortcuts.
func (ui *UI) showHelp() {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s::b]Keyboard shortcuts[-:-:-]\n\n", ui.theme.TagAccent)
	keys := [][2]string{
		{"Enter", "open the selected incident"},
		{"x", "resolve or reopen the selected incident"},
		{"Esc", "close the incident drawer / leave a field"},
		{"j / k", "move down / up"},
		{"u", "choose a log file to upload"},
		{"p", "paste raw log text"},
		{"s / v", "status / severity filter"},
		{"/", "search summary and service"},
		{"r", "reload incidents"},
		{"t", "cycle color theme"},
		{"Tab", "next panel"},
		{"L", "sign out"},
		{"q", "quit"},
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "  [%s]%-6s[-] %s\n", ui.theme.TagAccent, k[0], k[1])
	}
	fmt.Fprintf(&sb, "\n[%s]Press any key to close[-]", ui.theme.TagMuted)

	view := tview.NewTextView().SetDynamicColors(true).SetText(sb.String())
	view.SetBorder(true).SetTitle(" Help ")
	view.SetBackgroundColor(ui.theme.Surface)
	view.SetBorderColor(ui.theme.FocusBorder)
	view.SetInputCapture(func(*tcell.EventKey) *tcell.EventKey {
		ui.restoreMain()
		return nil
	})
	ui.showDialog(view)
}

// showDialog centers p over the main page and gives it focus.
func (ui *UI) showDialog(p tview.Primitive) {
	centered := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, 0, 3, true).
			AddItem(nil, 0, 1, false), 0, 3, true).
		AddItem(nil, 0, 1, false)

	ui.dialog = true
	ui.lastFocus = ui.app.GetFocus()
	ui.app.SetRoot(centered, true)
	ui.app.SetFocus(p)
}

// restoreMain returns from a dialog to the dashboard.
func (ui *UI) restoreMain() {
	ui.dialog = false
	ui.app.SetRoot(ui.mainRoot, true)
	target := ui.lastFocus
	if target == nil {
		target = ui.table
	}
	ui.app.SetFocus(target)
	ui.highlightFocus(target)
	ui.render()
	ui.setStatusDirect("Ready")
}
