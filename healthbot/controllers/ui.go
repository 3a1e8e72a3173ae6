// healthbot/controllers/ui.go
package controllers

import (
	"errors"
	"sync"
	"time"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/logging"

	"go.uber.org/zap"
)

// Route names a page of the front end.
type Route string

const (
	RouteSignIn  Route = "/signin"
	RouteSignUp  Route = "/signup"
	RouteChat    Route = "/chat"
	RouteProfile Route = "/profile"
)

// Panel names a region of a page that is re-rendered as a whole.
type Panel string

const (
	PanelSessions    Panel = "sessions"
	PanelDocuments   Panel = "documents"
	PanelThread      Panel = "thread"
	PanelTabs        Panel = "tabs"
	PanelForms       Panel = "forms"
	PanelMedications Panel = "medications"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notice is a transient message. A zero TTL means it stays until dismissed.
type Notice struct {
	Level Level
	Text  string
	TTL   time.Duration
}

const bannerTTL = 5 * time.Second

const (
	msgSessionExpired = "Your session has expired. Please login again."
	msgNetworkError   = "Network error. Please try again."
)

// userMessage is what a failed request shows: the backend's detail, or a
// retry hint when nothing came back.
func userMessage(err error) string {
	if api.IsTransport(err) {
		return msgNetworkError
	}
	return api.DetailOf(err, err.Error())
}

// UI is what a front end provides to the controllers. Controllers call it
// from whatever goroutine finished the work.
type UI interface {
	Navigate(Route)
	Notify(Notice)
	Confirm(prompt string) bool
	Refresh(Panel)
}

// IdentityStore is the persistent cache of who is signed in.
type IdentityStore interface {
	Identity() (types.Identity, error)
	SaveSignIn(token, email string) error
	RememberProfile(name, email string) error
	Clear() error
}

var ErrSubmitInFlight = errors.New("a submission is already in progress")

func logout(store IdentityStore, ui UI) error {
	err := store.Clear()
	if err != nil {
		logging.ErrorLogger.Error("clear identity", zap.Error(err))
	}
	ui.Navigate(RouteSignIn)
	return err
}

// authGuard ends the signed-in state once per controller when the backend
// rejects the token.
type authGuard struct {
	store IdentityStore
	ui    UI
	once  sync.Once
}

func newAuthGuard(store IdentityStore, ui UI) *authGuard {
	return &authGuard{store: store, ui: ui}
}

// handle reports whether err was an authentication failure and, the first
// time, clears the identity and sends the user to sign in.
func (g *authGuard) handle(err error) bool {
	expired := errors.Is(err, api.ErrUnauthorized)
	if !expired && !errors.Is(err, api.ErrNotSignedIn) {
		return false
	}
	g.once.Do(func() {
		if expired {
			logging.AppLogger.Info("token rejected, signing out", zap.Error(err))
			if cerr := g.store.Clear(); cerr != nil {
				logging.ErrorLogger.Error("clear identity", zap.Error(cerr))
			}
			g.ui.Notify(Notice{Level: LevelError, Text: msgSessionExpired, TTL: bannerTTL})
		}
		g.ui.Navigate(RouteSignIn)
	})
	return true
}
