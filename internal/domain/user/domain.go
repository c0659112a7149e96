package user

import (
	"strings"
	"time"
)

const MaxChecks = 5

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"passwordHash"`
	TOSAgreement bool      `json:"tosAgreement"`
	Checks       []string  `json:"checks"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *User) HasCheck(id string) bool {
	for _, c := range u.Checks {
		if c == id {
			return true
		}
	}
	return false
}

func (u *User) RemoveCheck(id string) {
	out := u.Checks[:0]
	for _, c := range u.Checks {
		if c != id {
			out = append(out, c)
		}
	}
	u.Checks = out
}

// AlertDestination prefers SMS when a phone number is known.
func (u *User) AlertDestination() string {
	if u.Phone != "" {
		return u.Phone
	}
	return u.Email
}
