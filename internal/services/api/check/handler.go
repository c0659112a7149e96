package check

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/services/api/auth"
	"github.com/NordCoder/Uptimer/internal/services/api/httpx"
)

type Handler struct {
	log *zap.Logger
	uc  *Usecase
}

func NewHandler(log *zap.Logger, uc *Usecase) *Handler {
	return &Handler{log: log.With(zap.String("component", "api.check")), uc: uc}
}

func ownerID(r *http.Request) string {
	u, _ := auth.UserFromCtx(r.Context())
	return u.ID
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	uid := ownerID(r)
	c, err := h.uc.Create(r.Context(), uid, in)
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	h.log.Info("check created", zap.String("user_id", uid), zap.String("check_id", c.ID), zap.String("target", c.Target()))
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.uc.List(r.Context(), ownerID(r))
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.uc.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	c, err := h.uc.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	c, err := h.uc.Reset(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, id := ownerID(r), chi.URLParam(r, "id")
	if err := h.uc.Delete(r.Context(), uid, id); err != nil {
		httpx.Fail(w, h.log, err)
		return
	}
	h.log.Info("check deleted", zap.String("user_id", uid), zap.String("check_id", id))
	w.WriteHeader(http.StatusOK)
}
