package checkout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/common/validation"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	"github.com/frahmantamala/donation-checkout/internal/transport"
	"github.com/frahmantamala/donation-checkout/pkg/logger"
)

type CampaignSource interface {
	GetCampaign(ctx context.Context, id string) (*donation.Campaign, error)
}

type CreateSessionRequest struct {
	CampaignID string `json:"campaign_id"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Snapshot
}

// Handler serves checkout sessions to the browser. Each session owns one
// Controller; the handler only translates HTTP into controller calls.
type Handler struct {
	*transport.BaseHandler
	sessions  *SessionStore
	campaigns CampaignSource
	deps      Dependencies
}

func NewHandler(sessions *SessionStore, campaigns CampaignSource, deps Dependencies, lg *slog.Logger) *Handler {
	if deps.Logger == nil {
		deps.Logger = lg
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		sessions:    sessions,
		campaigns:   campaigns,
		deps:        deps,
	}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}
	v := validation.NewValidator()
	v.Field("campaign_id", req.CampaignID).Labeled("Campaign").Required()
	if err := v.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	campaign, err := h.campaigns.GetCampaign(r.Context(), req.CampaignID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	controller := NewController(*campaign, h.deps)
	if err := controller.Open(r.Context()); err != nil {
		// Pre-fill is best effort; the donor can type the details.
		logger.From(r.Context()).Warn("CreateSession: donor details not pre-filled", "error", err)
	}

	id := h.sessions.Add(apperrors.UserIDFromContext(r.Context()), controller)
	logger.From(r.Context()).Info("checkout session created", "session_id", id, "campaign_id", campaign.ID)

	h.WriteJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Snapshot: controller.Snapshot()})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(c *Controller) error { return nil })
}

func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var form donation.FormData
	if err := h.DecodeJSON(r, &form); err != nil {
		h.HandleError(w, err)
		return
	}
	h.withSession(w, r, func(c *Controller) error { return c.SetForm(form) })
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(c *Controller) error {
		_, err := c.Next()
		return err
	})
}

func (h *Handler) Previous(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(c *Controller) error {
		_, err := c.Previous()
		return err
	})
}

// Submit blocks until the donation settles. For gateway payments the
// pending order shows up on GetSession while this request waits.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(c *Controller) error {
		_, err := c.Submit(r.Context())
		return err
	})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(c *Controller) error {
		c.Reset()
		if err := c.Open(r.Context()); err != nil {
			logger.From(r.Context()).Warn("Reset: donor details not pre-filled", "error", err)
		}
		return nil
	})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	controller, err := h.sessions.Remove(id, apperrors.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	controller.Close()
	logger.From(r.Context()).Info("checkout session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*Controller) error) {
	id := chi.URLParam(r, "id")
	controller, err := h.sessions.Get(id, apperrors.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleError(w, err)
		return
	}

	if err := fn(controller); err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SessionResponse{SessionID: id, Snapshot: controller.Snapshot()})
}
