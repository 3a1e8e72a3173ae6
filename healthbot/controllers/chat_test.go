package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/types"
)

const (
	routeSessions = "/api/chat/sessions"
	routeMessage  = "/api/chat/message"
	routeSession  = "/api/chat/session/{id}"
)

func threadTexts(v ChatView) []string {
	var out []string
	for _, e := range v.Thread {
		if e.Pending {
			out = append(out, "<pending>")
			continue
		}
		out = append(out, e.Message.Content)
	}
	return out
}

func TestEnterWithoutTokenRedirects(t *testing.T) {
	f := newFixture(t)
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.Enter(context.Background()); !errors.Is(err, api.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if r := f.ui.Routes(); len(r) != 1 || r[0] != RouteSignIn {
		t.Errorf("expected redirect to sign-in, got %v", r)
	}
	if f.srv.TotalHits() != 0 {
		t.Error("no request without a token")
	}
}

func TestEnterLoadsSidebars(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.AddSession(testEmail, "older")
	f.srv.AddDocument(testEmail, "labs.pdf", 4)
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.Enter(context.Background()); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if len(v.Sessions) != 1 || v.Sessions[0].Title != "older" {
		t.Errorf("unexpected sessions %+v", v.Sessions)
	}
	if len(v.Documents) != 1 || v.Documents[0].ChunksCount != 4 {
		t.Errorf("unexpected documents %+v", v.Documents)
	}
	if v.ActiveSession != "" {
		t.Error("no session is active on entry")
	}
}

func TestSendMessageStartsSession(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.Reply = func(string) string { return "hello" }
	bodies := make(chan map[string]any, 1)
	f.srv.OnRequest(http.MethodPost, routeMessage, func(r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		bodies <- body
	})
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.Enter(ctx); err != nil {
		t.Fatal(err)
	}
	before := f.srv.Hits(http.MethodGet, routeSessions)

	if err := c.SendMessage(ctx, "hi"); err != nil {
		t.Fatal(err)
	}
	body := <-bodies
	if v, ok := body["session_id"]; !ok || v != nil {
		t.Errorf("expected explicit null session_id, got %v", body)
	}

	v := c.View()
	if got := threadTexts(v); len(got) != 2 || got[0] != "hi" || got[1] != "hello" {
		t.Errorf("unexpected thread %v", got)
	}
	if v.Thread[0].Message.Role != types.RoleUser || v.Thread[1].Message.Role != types.RoleAssistant {
		t.Error("unexpected roles")
	}
	if v.ActiveSession != "S1" {
		t.Errorf("expected active session S1, got %q", v.ActiveSession)
	}
	if n := f.srv.Hits(http.MethodGet, routeSessions) - before; n != 1 {
		t.Errorf("expected exactly one session list refresh, got %d", n)
	}
	if len(v.Sessions) != 1 || v.Sessions[0].ID != "S1" {
		t.Errorf("session list should show the new session, got %+v", v.Sessions)
	}
	if v.Sending {
		t.Error("sending flag left set")
	}
}

func TestSendMessageToActiveSessionDoesNotRefreshList(t *testing.T) {
	f := newFixture(t).signedIn(t)
	id := f.srv.AddSession(testEmail, "existing")
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.SelectSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	before := f.srv.Hits(http.MethodGet, routeSessions)
	if err := c.SendMessage(ctx, "again"); err != nil {
		t.Fatal(err)
	}
	if f.srv.Hits(http.MethodGet, routeSessions) != before {
		t.Error("sending into an existing session must not refresh the list")
	}
	if c.View().ActiveSession != id {
		t.Error("active session should not change")
	}
}

func TestSendMessageIgnoresBlankText(t *testing.T) {
	f := newFixture(t).signedIn(t)
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.SendMessage(context.Background(), "   \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if f.srv.TotalHits() != 0 || len(c.View().Thread) != 0 {
		t.Error("blank text must not be sent or shown")
	}
}

func TestSendMessageApplicationError(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.FailNext(http.MethodPost, routeMessage, http.StatusInternalServerError, "model offline")
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.SendMessage(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	got := threadTexts(c.View())
	if len(got) != 2 || got[1] != "❌ Sorry, I encountered an error: model offline" {
		t.Errorf("unexpected thread %v", got)
	}
	if c.View().ActiveSession != "" {
		t.Error("cursor must stay NONE")
	}
	if len(f.ui.Routes()) != 0 {
		t.Error("application errors must not redirect")
	}
}

func TestSendMessageNetworkError(t *testing.T) {
	f := newFixture(t).signedIn(t)
	client := api.NewClient("http://127.0.0.1:1", f.store, api.WithTimeout(time.Second))
	c := NewChatController(client, f.store, f.ui)

	if err := c.SendMessage(context.Background(), "hi"); !api.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	got := threadTexts(c.View())
	if len(got) != 2 || !strings.HasPrefix(got[1], "❌ Network error: ") {
		t.Errorf("unexpected thread %v", got)
	}
}

func TestSendMessageUnauthorized(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.FailNext(http.MethodPost, routeMessage, http.StatusUnauthorized, "Could not validate credentials")
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.SendMessage(context.Background(), "hi"); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := threadTexts(c.View()); len(got) != 1 || got[0] != "hi" {
		t.Errorf("placeholder should be removed, got %v", got)
	}
	if n := f.ui.LastNotice(); n.Text != "Your session has expired. Please login again." {
		t.Errorf("unexpected notice %+v", n)
	}
	f.assertSignedOut(t)
}

func TestListUnauthorizedSignsOutOnce(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.FailNext(http.MethodGet, routeSessions, http.StatusUnauthorized, "Could not validate credentials")
	f.srv.FailNext(http.MethodGet, "/api/pdf/documents", http.StatusUnauthorized, "Could not validate credentials")
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.Enter(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	f.assertSignedOut(t)
	if r := f.ui.Routes(); len(r) != 1 {
		t.Errorf("expected a single redirect, got %v", r)
	}
}

func TestListFailureKeepsPreviousList(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.AddSession(testEmail, "kept")
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.LoadSessions(ctx); err != nil {
		t.Fatal(err)
	}
	f.srv.FailNext(http.MethodGet, routeSessions, http.StatusInternalServerError, "boom")
	if err := c.LoadSessions(ctx); err == nil {
		t.Fatal("expected failure")
	}
	if v := c.View(); len(v.Sessions) != 1 || v.Sessions[0].Title != "kept" {
		t.Errorf("previous list should remain, got %+v", v.Sessions)
	}
	if n := f.ui.LastNotice(); n.Level != LevelError || n.Text != "❌ Could not load conversations: boom" {
		t.Errorf("unexpected notice %+v", n)
	}
	if len(f.ui.Routes()) != 0 {
		t.Error("only 401 redirects")
	}
}

func TestFailuresAreShown(t *testing.T) {
	tests := []struct {
		name   string
		method string
		route  string
		run    func(ctx context.Context, c *ChatController, session, doc string) error
		want   string
	}{
		{
			name: "documents", method: http.MethodGet, route: "/api/pdf/documents",
			run:  func(ctx context.Context, c *ChatController, _, _ string) error { return c.LoadDocuments(ctx) },
			want: "❌ Could not load documents: db down",
		},
		{
			name: "select session", method: http.MethodGet, route: routeSession,
			run:  func(ctx context.Context, c *ChatController, id, _ string) error { return c.SelectSession(ctx, id) },
			want: "❌ Could not open conversation: db down",
		},
		{
			name: "delete session", method: http.MethodDelete, route: routeSession,
			run:  func(ctx context.Context, c *ChatController, id, _ string) error { return c.DeleteSession(ctx, id) },
			want: "❌ Delete failed: db down",
		},
		{
			name: "delete document", method: http.MethodDelete, route: "/api/pdf/document/{id}",
			run:  func(ctx context.Context, c *ChatController, _, id string) error { return c.DeleteDocument(ctx, id) },
			want: "❌ Delete failed: db down",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t).signedIn(t)
			session := f.srv.AddSession(testEmail, "visit")
			doc := f.srv.AddDocument(testEmail, "labs.pdf", 1)
			f.srv.FailNext(tt.method, tt.route, http.StatusInternalServerError, "db down")
			c := NewChatController(f.client, f.store, f.ui)

			if err := tt.run(context.Background(), c, session, doc); err == nil {
				t.Fatal("expected failure")
			}
			if n := f.ui.LastNotice(); n.Level != LevelError || n.Text != tt.want {
				t.Errorf("got notice %+v, want %q", n, tt.want)
			}
		})
	}
}

func TestNetworkFailureAsksToRetry(t *testing.T) {
	f := newFixture(t).signedIn(t)
	client := api.NewClient("http://127.0.0.1:1", f.store, api.WithTimeout(time.Second))
	c := NewChatController(client, f.store, f.ui)

	if err := c.LoadSessions(context.Background()); !api.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if n := f.ui.LastNotice(); n.Text != "❌ Could not load conversations: Network error. Please try again." {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestSelectSessionFailureKeepsPreviousSession(t *testing.T) {
	f := newFixture(t).signedIn(t)
	a := f.srv.AddSession(testEmail, "a", types.ChatMessage{Role: types.RoleUser, Content: "from A"})
	b := f.srv.AddSession(testEmail, "b",
		types.ChatMessage{Role: types.RoleUser, Content: "from B"},
		types.ChatMessage{Role: types.RoleAssistant, Content: "reply B"},
	)
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.SelectSession(ctx, a); err != nil {
		t.Fatal(err)
	}
	f.srv.FailNext(http.MethodGet, routeSession, http.StatusInternalServerError, "db down")
	if err := c.SelectSession(ctx, b); err == nil {
		t.Fatal("expected failure")
	}
	v := c.View()
	if v.ActiveSession != a {
		t.Errorf("active session should stay %s, got %s", a, v.ActiveSession)
	}
	if got := threadTexts(v); len(got) != 1 || got[0] != "from A" {
		t.Errorf("thread should be unchanged, got %v", got)
	}

	if err := c.SendMessage(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if got := threadTexts(c.View()); len(got) != 3 || got[1] != "hello" {
		t.Errorf("reply should land in the visible thread, got %v", got)
	}
	if n := f.srv.MessageCount(a); n != 3 {
		t.Errorf("message should be posted to %s, it has %d messages", a, n)
	}
	if n := f.srv.MessageCount(b); n != 2 {
		t.Errorf("%s should be untouched, it has %d messages", b, n)
	}
}

func TestReplyAfterNewChatIsNotApplied(t *testing.T) {
	f := newFixture(t).signedIn(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.srv.OnRequest(http.MethodPost, routeMessage, func(*http.Request) {
		close(entered)
		<-release
	})
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(ctx, "hi") }()
	<-entered
	c.NewChat()
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	v := c.View()
	if len(v.Thread) != 0 {
		t.Errorf("reply must not land in the new thread, got %v", threadTexts(v))
	}
	if v.ActiveSession != "" {
		t.Errorf("session id must not be adopted, got %q", v.ActiveSession)
	}
	if len(v.Sessions) != 1 {
		t.Errorf("session list should still be refreshed, got %+v", v.Sessions)
	}
}

func TestSelectSessionShowsMessages(t *testing.T) {
	f := newFixture(t).signedIn(t)
	id := f.srv.AddSession(testEmail, "visit",
		types.ChatMessage{Role: types.RoleUser, Content: "q"},
		types.ChatMessage{Role: types.RoleAssistant, Content: "a"},
	)
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.SelectSession(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if v.ActiveSession != id {
		t.Errorf("expected %s active, got %q", id, v.ActiveSession)
	}
	if got := threadTexts(v); len(got) != 2 || got[0] != "q" || got[1] != "a" {
		t.Errorf("unexpected thread %v", got)
	}
}

func TestDeleteActiveSessionClearsThread(t *testing.T) {
	f := newFixture(t).signedIn(t)
	id := f.srv.AddSession(testEmail, "visit", types.ChatMessage{Role: types.RoleUser, Content: "q"})
	other := f.srv.AddSession(testEmail, "other")
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.SelectSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if v.ActiveSession != "" || len(v.Thread) != 0 {
		t.Errorf("active session and thread should be cleared, got %q %v", v.ActiveSession, threadTexts(v))
	}
	if len(v.Sessions) != 1 || v.Sessions[0].ID != other {
		t.Errorf("list should be refreshed, got %+v", v.Sessions)
	}
	if p := f.ui.Prompts(); len(p) != 1 || p[0] != "Delete this conversation?" {
		t.Errorf("unexpected prompts %v", p)
	}
}

func TestDeleteInactiveSessionKeepsThread(t *testing.T) {
	f := newFixture(t).signedIn(t)
	active := f.srv.AddSession(testEmail, "active", types.ChatMessage{Role: types.RoleUser, Content: "q"})
	other := f.srv.AddSession(testEmail, "other")
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.SelectSession(ctx, active); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteSession(ctx, other); err != nil {
		t.Fatal(err)
	}
	if v := c.View(); v.ActiveSession != active || len(v.Thread) != 1 {
		t.Errorf("unrelated delete changed the thread: %q %v", v.ActiveSession, threadTexts(v))
	}
}

func TestDeleteDeclined(t *testing.T) {
	f := newFixture(t).signedIn(t)
	id := f.srv.AddSession(testEmail, "keep")
	f.ui.answer = false
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.DeleteSession(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if f.srv.Hits(http.MethodDelete, routeSession) != 0 {
		t.Error("declined delete must not call the backend")
	}
	if len(f.srv.SessionIDs(testEmail)) != 1 {
		t.Error("session should still exist")
	}
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t).signedIn(t)
	c := NewChatController(f.client, f.store, f.ui)
	data := minimalPDF()

	if err := c.UploadDocument(context.Background(), "/tmp/labs.pdf", data); err != nil {
		t.Fatal(err)
	}
	want := "✅ labs.pdf uploaded! Processed " + strconv.Itoa(len(data)/500+1) + " chunks."
	if n := f.ui.LastNotice(); n.Text != want || n.Level != LevelSuccess {
		t.Errorf("unexpected notice %+v, want %q", n, want)
	}
	v := c.View()
	if v.Uploading != "" {
		t.Error("progress should be cleared")
	}
	if len(v.Documents) != 1 || v.Documents[0].Filename != "labs.pdf" {
		t.Errorf("documents should be refreshed, got %+v", v.Documents)
	}
}

func TestUploadRejectsNonPDFLocally(t *testing.T) {
	f := newFixture(t).signedIn(t)
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.UploadDocument(ctx, "notes.txt", []byte("hello")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
	if f.srv.TotalHits() != 0 {
		t.Error("non-PDF files must not be uploaded")
	}
	if n := f.ui.LastNotice(); n.Text != "❌ Upload failed: Only PDF files are allowed" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestUploadLeavesContentChecksToBackend(t *testing.T) {
	pdf2 := bytes.Replace(minimalPDF(), []byte("%PDF-1.4"), []byte("%PDF-2.0"), 1)
	for name, data := range map[string][]byte{
		"v2.pdf":      pdf2,
		"garbled.pdf": []byte("not really a pdf at all"),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t).signedIn(t)
			c := NewChatController(f.client, f.store, f.ui)

			if err := c.UploadDocument(context.Background(), name, data); err != nil {
				t.Fatal(err)
			}
			if f.srv.Hits(http.MethodPost, "/api/pdf/upload") != 1 {
				t.Error("file should reach the backend")
			}
			if v := c.View(); len(v.Documents) != 1 || v.Documents[0].Filename != name {
				t.Errorf("documents should be refreshed, got %+v", v.Documents)
			}
		})
	}
}

func TestUploadShowsBackendError(t *testing.T) {
	f := newFixture(t).signedIn(t)
	f.srv.FailNext(http.MethodPost, "/api/pdf/upload", http.StatusBadRequest, "Could not extract text")
	c := NewChatController(f.client, f.store, f.ui)

	if err := c.UploadDocument(context.Background(), "scan.pdf", minimalPDF()); err == nil {
		t.Fatal("expected failure")
	}
	if n := f.ui.LastNotice(); n.Text != "❌ Upload failed: Could not extract text" {
		t.Errorf("unexpected notice %+v", n)
	}
	if c.View().Uploading != "" {
		t.Error("progress should be cleared on failure")
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t).signedIn(t)
	id := f.srv.AddDocument(testEmail, "labs.pdf", 2)
	c := NewChatController(f.client, f.store, f.ui)
	ctx := context.Background()

	if err := c.LoadDocuments(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteDocument(ctx, id); err != nil {
		t.Fatal(err)
	}
	if len(c.View().Documents) != 0 {
		t.Error("document list should be refreshed")
	}
	if p := f.ui.Prompts(); len(p) != 1 || p[0] != "Delete this document? It will no longer be used for answers." {
		t.Errorf("unexpected prompts %v", p)
	}
}

func TestChatIdentity(t *testing.T) {
	f := newFixture(t).signedIn(t)
	if err := f.store.RememberProfile("Jane Doe", testEmail); err != nil {
		t.Fatal(err)
	}
	c := NewChatController(f.client, f.store, f.ui)
	id := c.Identity()
	if id.DisplayName() != "Jane Doe" || id.Initials() != "JD" || id.Email != testEmail {
		t.Errorf("unexpected identity %+v", id)
	}
}

