package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Uptimer/internal/auth"
	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/session"
	"github.com/NordCoder/Uptimer/internal/domain/user"
	"github.com/NordCoder/Uptimer/internal/services/api/userlock"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrInvalidToken)

// OwnedChecksRemover deletes every check of a user before the user record goes away.
type OwnedChecksRemover interface {
	RemoveOwned(ctx context.Context, u *user.User) error
}

type Config struct {
	TokenTTL time.Duration
	Now      func() time.Time
}

type Usecase struct {
	users    user.Repo
	sessions session.Store
	checks   OwnedChecksRemover
	locks    *userlock.Locker
	cfg      Config
}

func NewUseCase(users user.Repo, sessions session.Store, checks OwnedChecksRemover, locks *userlock.Locker, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Usecase{users: users, sessions: sessions, checks: checks, locks: locks, cfg: cfg}
}

type SignUpInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	TOSAgreement bool   `json:"tosAgreement"`
}

// ProfileInput carries the editable user fields; nil means unchanged.
type ProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Password  *string `json:"password"`
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, reason)
}

func validName(s string) bool { return strings.TrimSpace(s) != "" }

func validPhone(s string) bool { return s == "" || alert.IsPhone(s) }

func (u *Usecase) SignUp(ctx context.Context, in SignUpInput) (*user.User, error) {
	email := user.NormalizeEmail(in.Email)
	switch {
	case !validName(in.FirstName) || !validName(in.LastName):
		return nil, invalid("firstName and lastName are required")
	case email == "":
		return nil, invalid("email is required")
	case !in.TOSAgreement:
		return nil, invalid("tosAgreement must be true")
	case !validPhone(in.Phone):
		return nil, invalid("phone must be in E.164 format")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is malformed")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, invalid(err.Error())
		}
		return nil, err
	}

	now := u.cfg.Now()
	nu := &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        in.Phone,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		TOSAgreement: true,
		Checks:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.users.Create(ctx, nu); err != nil {
		return nil, err
	}
	return nu, nil
}

// SignIn issues a new session token for valid credentials.
func (u *Usecase) SignIn(ctx context.Context, email, password string) (string, session.Session, error) {
	found, err := u.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", session.Session{}, ErrInvalidCredentials
		}
		return "", session.Session{}, err
	}
	if !auth.CheckPassword(found.PasswordHash, password) {
		return "", session.Session{}, ErrInvalidCredentials
	}
	return u.sessions.Create(ctx, found.ID, u.cfg.TokenTTL)
}

// Authenticate resolves a token to its user. The user is re-read on every call, so
// tokens of a deleted user stop working immediately.
func (u *Usecase) Authenticate(ctx context.Context, token string) (*user.User, error) {
	uid, err := u.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	found, err := u.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = u.sessions.Delete(ctx, token)
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return found, nil
}

func (u *Usecase) Me(ctx context.Context, uid string) (*user.User, error) {
	return u.users.GetByID(ctx, uid)
}

func (u *Usecase) UpdateProfile(ctx context.Context, uid string, in ProfileInput) (*user.User, error) {
	if in.FirstName == nil && in.LastName == nil && in.Phone == nil && in.Password == nil {
		return nil, invalid("nothing to update")
	}
	if (in.FirstName != nil && !validName(*in.FirstName)) || (in.LastName != nil && !validName(*in.LastName)) {
		return nil, invalid("names must not be empty")
	}
	if in.Phone != nil && !validPhone(*in.Phone) {
		return nil, invalid("phone must be in E.164 format")
	}

	var hash string
	if in.Password != nil {
		h, err := auth.HashPassword(*in.Password)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				return nil, invalid(err.Error())
			}
			return nil, err
		}
		hash = h
	}

	unlock := u.locks.Lock(uid)
	defer unlock()

	cur, err := u.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		cur.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		cur.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		cur.Phone = *in.Phone
	}
	if hash != "" {
		cur.PasswordHash = hash
	}
	cur.UpdatedAt = u.cfg.Now()
	if err := u.users.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// DeleteUser removes the user's checks first, then the user and the calling token.
func (u *Usecase) DeleteUser(ctx context.Context, uid, token string) error {
	unlock := u.locks.Lock(uid)
	defer unlock()

	cur, err := u.users.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	if err := u.checks.RemoveOwned(ctx, cur); err != nil {
		return fmt.Errorf("delete checks of %s: %w", uid, err)
	}
	if err := u.users.Delete(ctx, cur); err != nil {
		return err
	}
	_ = u.sessions.Delete(ctx, token)
	return nil
}

func (u *Usecase) Token(ctx context.Context, token string) (session.Session, error) {
	return u.sessions.Get(ctx, token)
}

func (u *Usecase) ExtendToken(ctx context.Context, token string) (session.Session, error) {
	return u.sessions.Extend(ctx, token, u.cfg.TokenTTL)
}

func (u *Usecase) SignOut(ctx context.Context, token string) error {
	return u.sessions.Delete(ctx, token)
}
