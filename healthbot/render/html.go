// Package render projects view state into HTML fragments and into styled
// text for the terminal. Every projection is a full re-render of one panel.
package render

import (
	"bytes"
	"html/template"
	"time"

	"healthbot/healthbot/types"
)

// ClockFormat is how message times are shown, e.g. "03:04 PM".
const ClockFormat = "03:04 PM"

const untitled = "(untitled)"

var funcs = template.FuncMap{
	"markdown": Markdown,
	"clock":    clock,
	"avatar":   avatar,
	"title":    title,
	"deref":    types.Deref,
}

var pages = template.Must(template.New("render").Funcs(funcs).Parse(`
{{define "sessions"}}
{{- if not .Sessions}}<div class="empty-sessions">No chat history yet.<br>Start a new conversation!</div>
{{- else}}{{range .Sessions}}<div class="session-item{{if eq .ID $.Active}} active{{end}}" data-session-id="{{.ID}}">
<span class="session-title">{{title .Title}}</span>
<button class="session-delete" data-session-id="{{.ID}}" aria-label="Delete conversation"></button>
</div>
{{end}}{{end}}
{{- end}}

{{define "documents"}}
{{- if .Uploading}}<div class="upload-progress" id="uploadProgress">
<div class="upload-progress-bar"><div class="upload-progress-fill indeterminate"></div></div>
<div class="upload-progress-text">Uploading {{.Uploading}}...</div>
</div>
{{end}}
{{- if not .Documents}}<div class="empty-documents">No documents uploaded yet</div>
{{- else}}{{range .Documents}}<div class="document-item" data-document-id="{{.ID}}">
<div>
<div class="document-name" title="{{.Filename}}">📄 {{.Filename}}</div>
<div class="document-info">{{.ChunksCount}} chunks</div>
</div>
<button class="document-delete" data-document-id="{{.ID}}" aria-label="Delete document"></button>
</div>
{{end}}{{end}}
{{- end}}

{{define "thread"}}
{{- if not .}}<div class="welcome-message" id="welcomeMessage">Ask me anything about your health.</div>
{{- else}}{{range .}}{{if .Pending}}<div class="message assistant" id="typingIndicator">
<div class="message-avatar">🤖</div>
<div class="message-content"><div class="typing-indicator"><div class="typing-dot"></div><div class="typing-dot"></div><div class="typing-dot"></div></div></div>
</div>
{{else}}<div class="message {{.Message.Role}}">
<div class="message-avatar">{{avatar .Message.Role}}</div>
<div class="message-content">
<div class="message-text">{{markdown .Message.Content}}</div>
<div class="message-time">{{clock .Message.Timestamp.Time}}</div>
</div>
</div>
{{end}}{{end}}{{end}}
{{- end}}

{{define "medications"}}
{{- if not .}}<div class="empty-state">No medications added yet. Click "Add Medication" to get started.</div>
{{- else}}{{range $i, $m := .}}<div class="medication-item" data-index="{{$i}}" data-key="{{$m.Key}}">
<div class="medication-info">
<h3>{{$m.MedicationName}}</h3>
<p><strong>Dosage:</strong> {{$m.Dosage}}</p>
<p><strong>Frequency:</strong> {{$m.Frequency}}</p>
{{with deref $m.PrescribedFor}}<p><strong>For:</strong> {{.}}</p>{{end}}
</div>
<div class="medication-actions"><button class="medication-delete" data-index="{{$i}}" aria-label="Delete medication"></button></div>
</div>
{{end}}{{end}}
{{- end}}

{{define "identity"}}<div class="user-menu">
<div class="user-avatar" id="userInitials">{{.Initials}}</div>
<div class="user-info"><div class="user-name" id="userName">{{.DisplayName}}</div><div class="user-email" id="userEmail">{{.Email}}</div></div>
</div>
{{- end}}
`))

func clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(ClockFormat)
}

func avatar(role string) string {
	if role == types.RoleUser {
		return "👤"
	}
	return "🤖"
}

func title(s string) string {
	if s == "" {
		return untitled
	}
	return s
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// SessionsHTML renders the sidebar; the row whose id equals active is marked.
func SessionsHTML(sessions []types.SessionSummary, active string) (template.HTML, error) {
	return execute("sessions", struct {
		Sessions []types.SessionSummary
		Active   string
	}{sessions, active})
}

// DocumentsHTML renders the document list, preceded by a progress bar while
// uploading names a file.
func DocumentsHTML(docs []types.Document, uploading string) (template.HTML, error) {
	return execute("documents", struct {
		Documents []types.Document
		Uploading string
	}{docs, uploading})
}

func ThreadHTML(entries []types.ThreadEntry) (template.HTML, error) {
	return execute("thread", entries)
}

func MedicationsHTML(meds []types.Medication) (template.HTML, error) {
	return execute("medications", meds)
}

func IdentityHTML(id types.Identity) (template.HTML, error) {
	return execute("identity", id)
}
