package donationapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/common/validation"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
	"github.com/frahmantamala/donation-checkout/internal/transport"
)

type ServiceAPI interface {
	GetMyDonations(ctx context.Context, page, limit int) (*donation.Page, error)
	ListCampaigns(ctx context.Context, status string) ([]donation.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*donation.Campaign, error)
	CreateCampaign(ctx context.Context, campaign donation.Campaign) (*donation.Campaign, error)
	UpdateCampaign(ctx context.Context, id string, campaign donation.Campaign) (*donation.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
	ListFunds(ctx context.Context) ([]donation.Fund, error)
}

// Handler exposes the Donation API's campaign, fund and donation listings to
// the browser with the caller's token forwarded.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Service.ListCampaigns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []donation.Campaign{}
	}
	h.WriteJSON(w, http.StatusOK, campaigns)
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.Service.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, campaign)
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var campaign donation.Campaign
	if err := h.DecodeJSON(r, &campaign); err != nil {
		h.HandleError(w, err)
		return
	}
	if err := validateCampaign(campaign); err != nil {
		h.HandleError(w, err)
		return
	}

	created, err := h.Service.CreateCampaign(r.Context(), campaign)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var campaign donation.Campaign
	if err := h.DecodeJSON(r, &campaign); err != nil {
		h.HandleError(w, err)
		return
	}
	if err := validateCampaign(campaign); err != nil {
		h.HandleError(w, err)
		return
	}

	updated, err := h.Service.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), campaign)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.Service.ListFunds(r.Context())
	if err != nil {
		h.HandleError(w, err)
		return
	}
	if funds == nil {
		funds = []donation.Fund{}
	}
	h.WriteJSON(w, http.StatusOK, funds)
}

func (h *Handler) GetMyDonations(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.Service.GetMyDonations(r.Context(), page, limit)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func validateCampaign(c donation.Campaign) error {
	v := validation.NewValidator()
	v.Field("title", c.Title).Labeled("Title").Required()
	v.Field("goalAmount", c.GoalAmount).MinFloat(donation.MinimumAmount, "Goal amount must be at least ₹1", apperrors.ErrCodeInvalidAmount)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
