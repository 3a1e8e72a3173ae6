package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"healthbot/healthbot/types"

	"github.com/go-chi/chi/v5"
)

// pyTime matches the naive UTC isoformat the real backend emits.
const pyTime = "2006-01-02T15:04:05.000000"

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return detail("invalid request body")
	}
	return nil
}

func (s *Server) health(*http.Request) (any, int, error) {
	return types.Health{Status: types.StatusHealthy, Environment: "local"}, http.StatusOK, nil
}

func (s *Server) signUp(r *http.Request) (any, int, error) {
	var req types.SignUpRequest
	if err := decode(r, &req); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	if len(req.Username) < 3 || len(req.Password) < 6 || !strings.Contains(req.Email, "@") {
		return nil, http.StatusUnprocessableEntity, detail("invalid sign up data")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.Email]; ok {
		return nil, http.StatusBadRequest, detail("Email already registered")
	}
	for _, u := range s.users {
		if u.Username == req.Username {
			return nil, http.StatusBadRequest, detail("Username already taken")
		}
	}
	s.users[req.Email] = &user{Username: req.Username, Email: req.Email, Password: req.Password}
	return types.SignUpResponse{Message: "User registered successfully", UserID: s.nextID("U")}, http.StatusOK, nil
}

func (s *Server) signIn(r *http.Request) (any, int, error) {
	var req types.SignInRequest
	if err := decode(r, &req); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		return nil, http.StatusUnauthorized, detail("Incorrect email or password")
	}
	return types.Token{AccessToken: s.IssueToken(req.Email, time.Hour), TokenType: "bearer"}, http.StatusOK, nil
}

func (s *Server) listSessions(r *http.Request) (any, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]string{}
	for _, sess := range s.sortedSessions(userEmail(r)) {
		out = append(out, map[string]string{
			"id":         sess.ID,
			"title":      sess.Title,
			"created_at": sess.CreatedAt.Format(pyTime),
			"updated_at": sess.UpdatedAt.Format(pyTime),
		})
	}
	return out, http.StatusOK, nil
}

func (s *Server) ownedSession(r *http.Request) (*session, error) {
	sess, ok := s.sessions[chi.URLParam(r, "id")]
	if !ok || sess.Owner != userEmail(r) {
		return nil, detail("Session not found")
	}
	return sess, nil
}

func (s *Server) getSession(r *http.Request) (any, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.ownedSession(r)
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	return types.ChatSession{ID: sess.ID, Title: sess.Title, Messages: sess.Messages}, http.StatusOK, nil
}

func (s *Server) deleteSession(r *http.Request) (any, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.ownedSession(r)
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	delete(s.sessions, sess.ID)
	return map[string]string{"message": "Session deleted successfully"}, http.StatusOK, nil
}

func (s *Server) sendMessage(r *http.Request) (any, int, error) {
	var req types.ChatRequest
	if err := decode(r, &req); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	email := userEmail(r)

	var sess *session
	if req.SessionID != nil && *req.SessionID != "" {
		found, ok := s.sessions[*req.SessionID]
		if !ok || found.Owner != email {
			return nil, http.StatusNotFound, detail("Session not found")
		}
		sess = found
	} else {
		title := req.Message
		if len(title) > 50 {
			title = title[:50]
		}
		id := s.nextID("S")
		sess = &session{seq: s.seq, ID: id, Owner: email, Title: title, CreatedAt: now}
		s.sessions[id] = sess
	}

	reply := s.Reply(req.Message)
	sess.Messages = append(sess.Messages,
		types.ChatMessage{Role: types.RoleUser, Content: req.Message, Timestamp: types.Timestamp{Time: now}},
		types.ChatMessage{Role: types.RoleAssistant, Content: reply, Timestamp: types.Timestamp{Time: now}},
	)
	sess.UpdatedAt = now
	return types.ChatResponse{Response: reply, SessionID: sess.ID}, http.StatusOK, nil
}

func (s *Server) listDocuments(r *http.Request) (any, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, doc := range s.documents {
		if doc.Owner != userEmail(r) {
			continue
		}
		out = append(out, map[string]any{
			"id":           doc.ID,
			"filename":     doc.Filename,
			"chunks_count": doc.Chunks,
			"uploaded_at":  doc.UploadedAt.Format(pyTime),
		})
	}
	return out, http.StatusOK, nil
}

func (s *Server) upload(r *http.Request) (any, int, error) {
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusUnprocessableEntity, detail("file is required")
	}
	defer f.Close()
	if !strings.HasSuffix(hdr.Filename, ".pdf") {
		return nil, http.StatusBadRequest, detail("Only PDF files are allowed")
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, detail("could not read file")
	}
	chunks := len(data)/500 + 1

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("D")
	s.documents[id] = &document{ID: id, Owner: userEmail(r), Filename: hdr.Filename, Chunks: chunks, UploadedAt: time.Now().UTC()}
	return types.UploadResult{Message: "PDF uploaded and processed successfully", Filename: hdr.Filename, ChunksCount: chunks}, http.StatusOK, nil
}

func (s *Server) deleteDocument(r *http.Request) (any, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[chi.URLParam(r, "id")]
	if !ok || doc.Owner != userEmail(r) {
		return nil, http.StatusNotFound, detail("Document not found")
	}
	delete(s.documents, doc.ID)
	return map[string]string{"message": "Document deleted successfully"}, http.StatusOK, nil
}

// profileFor returns the caller's profile, creating it on first write. Callers hold s.mu.
func (s *Server) profileFor(email string) *types.Profile {
	p := s.profiles[email]
	if p == nil {
		p = &types.Profile{UserID: email}
		s.profiles[email] = p
	}
	return p
}

func (s *Server) getProfile(r *http.Request) (any, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := userEmail(r)
	p, ok := s.profiles[email]
	if !ok {
		return types.Profile{UserID: email, Medications: []types.Medication{}}, http.StatusOK, nil
	}
	out := *p
	out.Medications = append([]types.Medication{}, p.Medications...)
	return out, http.StatusOK, nil
}

func saveSection[T any](s *Server, r *http.Request, apply func(*types.Profile, *T), msg string) (any, int, error) {
	var section T
	if err := decode(r, &section); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(s.profileFor(userEmail(r)), &section)
	return map[string]string{"message": msg}, http.StatusOK, nil
}

func (s *Server) saveBasicInfo(r *http.Request) (any, int, error) {
	return saveSection(s, r, func(p *types.Profile, v *types.BasicInfo) {
		p.BasicInfo = v
	}, "Basic information saved successfully")
}

func (s *Server) saveMedicalHistory(r *http.Request) (any, int, error) {
	return saveSection(s, r, func(p *types.Profile, v *types.MedicalHistory) {
		p.MedicalHistory = v
	}, "Medical history saved successfully")
}

func (s *Server) saveAllergies(r *http.Request) (any, int, error) {
	return saveSection(s, r, func(p *types.Profile, v *types.Allergies) {
		p.Allergies = v
	}, "Allergies saved successfully")
}

func (s *Server) saveLifestyle(r *http.Request) (any, int, error) {
	return saveSection(s, r, func(p *types.Profile, v *types.Lifestyle) {
		p.Lifestyle = v
	}, "Lifestyle information saved successfully")
}

func (s *Server) addMedication(r *http.Request) (any, int, error) {
	return saveSection(s, r, func(p *types.Profile, v *types.Medication) {
		p.Medications = append(p.Medications, *v)
	}, "Medication added successfully")
}

func (s *Server) deleteMedication(r *http.Request) (any, int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return nil, http.StatusUnprocessableEntity, detail("index must be an integer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[userEmail(r)]
	if p == nil || len(p.Medications) == 0 {
		return nil, http.StatusNotFound, detail("No medications found")
	}
	if index < 0 || index >= len(p.Medications) {
		return nil, http.StatusNotFound, detail("Medication not found")
	}
	p.Medications = append(p.Medications[:index:index], p.Medications[index+1:]...)
	return map[string]string{"message": "Medication deleted successfully"}, http.StatusOK, nil
}
