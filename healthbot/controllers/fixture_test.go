package controllers

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/sources/api/apitest"
	"healthbot/healthbot/sources/storage"
	"healthbot/healthbot/types"
)

type recordingUI struct {
	mu        sync.Mutex
	routes    []Route
	notices   []Notice
	prompts   []string
	refreshed map[Panel]int
	answer    bool
}

func newRecordingUI() *recordingUI {
	return &recordingUI{refreshed: map[Panel]int{}, answer: true}
}

func (u *recordingUI) Navigate(r Route) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes = append(u.routes, r)
}

func (u *recordingUI) Notify(n Notice) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notices = append(u.notices, n)
}

func (u *recordingUI) Confirm(prompt string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prompts = append(u.prompts, prompt)
	return u.answer
}

func (u *recordingUI) Refresh(p Panel) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.refreshed[p]++
}

func (u *recordingUI) Routes() []Route {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Route(nil), u.routes...)
}

func (u *recordingUI) LastNotice() Notice {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.notices) == 0 {
		return Notice{}
	}
	return u.notices[len(u.notices)-1]
}

func (u *recordingUI) Prompts() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.prompts...)
}

type fixture struct {
	srv    *apitest.Server
	store  *storage.Store
	client *api.Client
	ui     *recordingUI
}

const (
	testEmail    = "jane@example.com"
	testPassword = "secret1"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	store, err := storage.Open("state", storage.InMemory())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &fixture{
		srv:    srv,
		store:  store,
		client: api.NewClient(srv.URL(), store),
		ui:     newRecordingUI(),
	}
}

// signedIn registers the test user on the fake backend and stores its token.
func (f *fixture) signedIn(t *testing.T) *fixture {
	t.Helper()
	token := f.srv.AddUser("jane", testEmail, testPassword)
	if err := f.store.SaveSignIn(token, testEmail); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) identity(t *testing.T) types.Identity {
	t.Helper()
	id, err := f.store.Identity()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) assertSignedOut(t *testing.T) {
	t.Helper()
	if id := f.identity(t); id != (types.Identity{}) {
		t.Errorf("identity should be cleared, got %+v", id)
	}
	routes := f.ui.Routes()
	if len(routes) == 0 || routes[len(routes)-1] != RouteSignIn {
		t.Errorf("expected redirect to sign-in, got %v", routes)
	}
}

// minimalPDF builds a one-page PDF with a correct cross-reference table.
func minimalPDF() []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}
