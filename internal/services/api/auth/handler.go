package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/session"
	"github.com/NordCoder/Uptimer/internal/domain/user"
	"github.com/NordCoder/Uptimer/internal/services/api/httpx"
)

type Handler struct {
	log *zap.Logger
	uc  *Usecase
}

func NewHandler(log *zap.Logger, uc *Usecase) *Handler {
	return &Handler{log: log.With(zap.String("component", "api.auth")), uc: uc}
}

// UserView is a user without credentials.
type UserView struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	TOSAgreement bool      `json:"tosAgreement"`
	Checks       []string  `json:"checks"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toView(u *user.User) UserView {
	checks := u.Checks
	if checks == nil {
		checks = []string{}
	}
	return UserView{
		ID: u.ID, Email: u.Email, Phone: u.Phone,
		FirstName: u.FirstName, LastName: u.LastName, TOSAgreement: u.TOSAgreement,
		Checks: checks, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

type TokenView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toTokenView(token string, s session.Session) TokenView {
	return TokenView{ID: token, UserID: s.UserID, ExpiresAt: s.ExpiresAt}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in SignUpInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	u, err := h.uc.SignUp(r.Context(), in)
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	h.log.Info("user signed up", zap.String("user_id", u.ID))
	httpx.WriteJSON(w, http.StatusOK, toView(u))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	httpx.WriteJSON(w, http.StatusOK, toView(u))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	cur, _ := UserFromCtx(r.Context())
	var in ProfileInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	u, err := h.uc.UpdateProfile(r.Context(), cur.ID, in)
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(u))
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	cur, _ := UserFromCtx(r.Context())
	if err := h.uc.DeleteUser(r.Context(), cur.ID, TokenFromCtx(r.Context())); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	h.log.Info("user deleted", zap.String("user_id", cur.ID))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	token, s, err := h.uc.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenView(token, s))
}

func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.uc.Token(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			httpx.WriteError(w, http.StatusNotFound, "token not found")
			return
		}
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenView(id, s))
}

func (h *Handler) ExtendToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.uc.ExtendToken(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			httpx.WriteError(w, http.StatusBadRequest, "token is expired or unknown")
			return
		}
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenView(id, s))
}

func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.SignOut(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
