// healthbot/controllers/chat.go
package controllers

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/inflight"
	"healthbot/healthbot/utils/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyMessage = errors.New("message is empty")

const (
	promptDeleteSession = "Delete this conversation?"
	keySessions         = "sessions"
	keyDocuments        = "documents"
	keyThread           = "thread"
)

type ChatAPI interface {
	ListSessions(ctx context.Context) ([]types.SessionSummary, error)
	GetSession(ctx context.Context, id string) (*types.ChatSession, error)
	DeleteSession(ctx context.Context, id string) error
	SendMessage(ctx context.Context, message, sessionID string) (*types.ChatResponse, error)
	ListDocuments(ctx context.Context) ([]types.Document, error)
	UploadDocument(ctx context.Context, filename string, content io.Reader) (*types.UploadResult, error)
	DeleteDocument(ctx context.Context, id string) error
}

// ChatView is everything the chat page shows. ActiveSession "" means the next
// message starts a new conversation.
type ChatView struct {
	ActiveSession string
	Sessions      []types.SessionSummary
	Documents     []types.Document
	Thread        []types.ThreadEntry
	Uploading     string
	Sending       bool
}

type ChatController struct {
	api   ChatAPI
	store IdentityStore
	ui    UI
	auth  *authGuard
	group inflight.Group
	now   func() time.Time

	mu   sync.Mutex
	view ChatView
	// epoch changes whenever the visible thread is replaced, so a reply that
	// arrives afterwards can tell it no longer belongs there.
	epoch uint64
}

func NewChatController(client ChatAPI, store IdentityStore, ui UI) *ChatController {
	return &ChatController{
		api:   client,
		store: store,
		ui:    ui,
		auth:  newAuthGuard(store, ui),
		now:   time.Now,
	}
}

// View returns a copy of the current state for rendering.
func (c *ChatController) View() ChatView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.Sessions = slices.Clone(v.Sessions)
	v.Documents = slices.Clone(v.Documents)
	v.Thread = slices.Clone(v.Thread)
	return v
}

func (c *ChatController) Identity() types.Identity {
	id, err := c.store.Identity()
	if err != nil {
		logging.ErrorLogger.Error("read identity", zap.Error(err))
	}
	return id
}

// Enter checks for a stored token and loads both sidebars concurrently.
func (c *ChatController) Enter(ctx context.Context) error {
	if !c.Identity().SignedIn() {
		c.auth.handle(api.ErrNotSignedIn)
		return api.ErrNotSignedIn
	}
	var g errgroup.Group
	g.Go(func() error { return c.LoadSessions(ctx) })
	g.Go(func() error { return c.LoadDocuments(ctx) })
	return g.Wait()
}

// LoadSessions replaces the session list. A refresh started while another is
// running wins; the older result is dropped.
func (c *ChatController) LoadSessions(ctx context.Context) error {
	err := inflight.Latest(&c.group, ctx, keySessions, c.api.ListSessions, func(list []types.SessionSummary) {
		c.mu.Lock()
		c.view.Sessions = list
		c.mu.Unlock()
	})
	if errors.Is(err, inflight.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return c.failed(err, "load sessions", "❌ Could not load conversations: ")
	}
	c.ui.Refresh(PanelSessions)
	return nil
}

// SelectSession makes id active and loads its messages. If the load fails
// the previous session stays active.
func (c *ChatController) SelectSession(ctx context.Context, id string) error {
	c.mu.Lock()
	prev := c.view.ActiveSession
	c.view.ActiveSession = id
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()
	c.ui.Refresh(PanelSessions)

	load := func(ctx context.Context) (*types.ChatSession, error) {
		return c.api.GetSession(ctx, id)
	}
	err := inflight.Latest(&c.group, ctx, keyThread, load, func(s *types.ChatSession) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.view.ActiveSession != id {
			return
		}
		c.view.Thread = make([]types.ThreadEntry, 0, len(s.Messages))
		for _, m := range s.Messages {
			c.view.Thread = append(c.view.Thread, types.ThreadEntry{Message: m})
		}
	})
	if errors.Is(err, inflight.ErrSuperseded) {
		return nil
	}
	if err != nil {
		c.mu.Lock()
		if c.epoch == epoch {
			c.view.ActiveSession = prev
			c.epoch++
		}
		c.mu.Unlock()
		c.ui.Refresh(PanelSessions)
		return c.failed(err, "load session", "❌ Could not open conversation: ")
	}
	c.ui.Refresh(PanelThread)
	return nil
}

// NewChat clears the thread; the next message starts a new session.
func (c *ChatController) NewChat() {
	c.group.Cancel(keyThread)
	c.mu.Lock()
	c.view.ActiveSession = ""
	c.view.Thread = nil
	c.epoch++
	c.mu.Unlock()
	c.ui.Refresh(PanelThread)
	c.ui.Refresh(PanelSessions)
}

// SendMessage posts text to the active session, or to a new one. Failures
// other than authentication are shown as an assistant bubble.
func (c *ChatController) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	defer logging.LogDuration(ctx, "ChatController.SendMessage")()

	c.mu.Lock()
	if c.view.Sending {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.view.Sending = true
	epoch := c.epoch
	sessionID := c.view.ActiveSession
	c.view.Thread = append(c.view.Thread,
		types.ThreadEntry{Message: c.message(types.RoleUser, text)},
		types.ThreadEntry{Pending: true},
	)
	c.mu.Unlock()
	c.ui.Refresh(PanelThread)

	resp, err := c.api.SendMessage(ctx, text, sessionID)

	c.mu.Lock()
	c.view.Sending = false
	current := c.epoch == epoch
	c.dropPending()
	if current {
		switch {
		case err == nil:
			c.view.Thread = append(c.view.Thread, types.ThreadEntry{Message: c.message(types.RoleAssistant, resp.Response)})
			if sessionID == "" {
				c.view.ActiveSession = resp.SessionID
			}
		case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrNotSignedIn):
		case api.IsTransport(err):
			c.view.Thread = append(c.view.Thread, types.ThreadEntry{Message: c.message(types.RoleAssistant, "❌ Network error: "+transportCause(err))})
		default:
			c.view.Thread = append(c.view.Thread, types.ThreadEntry{Message: c.message(types.RoleAssistant, "❌ Sorry, I encountered an error: "+api.DetailOf(err, err.Error()))})
		}
	}
	c.mu.Unlock()
	c.ui.Refresh(PanelThread)

	if err != nil {
		if !c.auth.handle(err) {
			logging.AppLogger.Warn("send message failed", zap.Error(err))
		}
		return err
	}
	if !current {
		logging.AppLogger.Info("reply arrived after the thread changed", zap.String("session_id", resp.SessionID))
	}
	if sessionID == "" {
		return c.LoadSessions(ctx)
	}
	return nil
}

// DeleteSession asks for confirmation first. Concurrent deletes of the same
// session share one request.
func (c *ChatController) DeleteSession(ctx context.Context, id string) error {
	if !c.ui.Confirm(promptDeleteSession) {
		return nil
	}
	err := c.group.Exclusive("delete-session:"+id, func() error {
		return c.api.DeleteSession(ctx, id)
	})
	if err != nil {
		return c.failed(err, "delete session", "❌ Delete failed: ")
	}

	c.mu.Lock()
	wasActive := c.view.ActiveSession == id
	if wasActive {
		c.view.ActiveSession = ""
		c.view.Thread = nil
		c.epoch++
	}
	c.mu.Unlock()
	if wasActive {
		c.group.Cancel(keyThread)
		c.ui.Refresh(PanelThread)
	}
	return c.LoadSessions(ctx)
}

func (c *ChatController) Logout() error {
	return logout(c.store, c.ui)
}

// message stamps a locally created bubble. Callers hold c.mu.
func (c *ChatController) message(role, content string) types.ChatMessage {
	return types.ChatMessage{Role: role, Content: content, Timestamp: types.Timestamp{Time: c.now()}}
}

// dropPending removes the last typing placeholder. Callers hold c.mu.
func (c *ChatController) dropPending() {
	for i := len(c.view.Thread) - 1; i >= 0; i-- {
		if c.view.Thread[i].Pending {
			c.view.Thread = slices.Delete(c.view.Thread, i, i+1)
			return
		}
	}
}

// failed routes authentication failures to sign-in; anything else is logged
// and shown after prefix. The view keeps its previous state either way.
func (c *ChatController) failed(err error, op, prefix string) error {
	if c.auth.handle(err) {
		return err
	}
	logging.AppLogger.Warn(op+" failed", zap.Error(err))
	if !errors.Is(err, context.Canceled) {
		c.ui.Notify(Notice{Level: LevelError, Text: prefix + userMessage(err)})
	}
	return err
}

func transportCause(err error) string {
	var te *api.TransportError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}
