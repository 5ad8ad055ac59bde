package user

import (
	"strings"
	"time"
)

// User is the stored profile behind an identity.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName falls back to the local part of the email.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Avatar returns up to two initials for list rendering.
func (u User) Avatar() string {
	fields := strings.Fields(u.DisplayName())
	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)
		b.WriteString(strings.ToUpper(string(r[0])))
		if b.Len() >= 2 {
			break
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	if len([]rune(b.String())) == 1 {
		name := []rune(u.DisplayName())
		if len(name) > 1 {
			b.WriteString(strings.ToUpper(string(name[1])))
		}
	}
	return b.String()
}
