package cmd

import (
	"fmt"
	"io"
	"sync"

	"healthbot/healthbot/controllers"
	"healthbot/healthbot/utils/color"
)

// terminalUI prints notices as lines and re-renders only the panels the
// running command has registered. Notice TTLs have no meaning here.
type terminalUI struct {
	out       io.Writer
	in        *prompter
	assumeYes bool

	mu     sync.Mutex
	route  controllers.Route
	errors int
	panels map[controllers.Panel]func()
}

func newTerminalUI(out io.Writer, in *prompter, assumeYes bool) *terminalUI {
	return &terminalUI{out: out, in: in, assumeYes: assumeYes, panels: map[controllers.Panel]func(){}}
}

var routeHints = map[controllers.Route]string{
	controllers.RouteSignIn:  "Run `healthbot signin` to continue.",
	controllers.RouteSignUp:  "Run `healthbot signup` to create an account.",
	controllers.RouteChat:    "Run `healthbot chat` to start a conversation.",
	controllers.RouteProfile: "Run `healthbot profile` to review your profile.",
}

func (u *terminalUI) Navigate(r controllers.Route) {
	u.mu.Lock()
	u.route = r
	u.mu.Unlock()
	if hint, ok := routeHints[r]; ok {
		fmt.Fprintln(u.out, color.ColorMuted(hint))
	}
}

func (u *terminalUI) Notify(n controllers.Notice) {
	var text string
	switch n.Level {
	case controllers.LevelError:
		u.mu.Lock()
		u.errors++
		u.mu.Unlock()
		text = color.ColorError(n.Text)
	case controllers.LevelSuccess:
		text = color.ColorInfo(n.Text)
	default:
		text = color.ColorPrompt(n.Text)
	}
	fmt.Fprintln(u.out, text)
}

func (u *terminalUI) Confirm(prompt string) bool {
	if u.assumeYes {
		return true
	}
	return u.in.Confirm(prompt)
}

func (u *terminalUI) Refresh(p controllers.Panel) {
	u.mu.Lock()
	draw := u.panels[p]
	u.mu.Unlock()
	if draw != nil {
		draw()
	}
}

// show registers draw to run whenever p changes; nil unregisters.
func (u *terminalUI) show(p controllers.Panel, draw func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if draw == nil {
		delete(u.panels, p)
		return
	}
	u.panels[p] = draw
}

// Route is the last navigation a controller asked for.
func (u *terminalUI) Route() controllers.Route {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.route
}

func (u *terminalUI) errorShown() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.errors > 0
}

// resetErrors starts a fresh count, e.g. for the next line of a chat.
func (u *terminalUI) resetErrors() {
	u.mu.Lock()
	u.errors = 0
	u.mu.Unlock()
}

// signedOut reports whether a controller sent the user back to sign-in.
func (u *terminalUI) signedOut() bool {
	return u.Route() == controllers.RouteSignIn
}
