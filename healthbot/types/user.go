// healthbot/types/user.go
package types

import (
	"strings"
	"unicode/utf8"
)

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type SignUpResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Identity is the locally cached sign-in state.
type Identity struct {
	Token string `json:"token"`
	Email string `json:"userEmail"`
	Name  string `json:"userName"`
}

func (i Identity) SignedIn() bool {
	return i.Token != ""
}

// DisplayName falls back to the local part of the email.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(i.Email, "@")
	return local
}

// Initials feeds the avatar: first and last initials of a multi-word name,
// else the first two letters of the name or email, else "U".
func (i Identity) Initials() string {
	name := i.DisplayName()
	if parts := strings.Fields(name); len(parts) >= 2 {
		first, _ := utf8.DecodeRuneInString(parts[0])
		last, _ := utf8.DecodeRuneInString(parts[len(parts)-1])
		return strings.ToUpper(string(first) + string(last))
	}
	for _, s := range []string{name, i.Email} {
		if s = strings.TrimSpace(s); s != "" {
			r := []rune(s)
			return strings.ToUpper(string(r[:min(2, len(r))]))
		}
	}
	return "U"
}
