package paymentgateway

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/transport"
)

// CallbackRequest is posted by the hosted checkout page once the donor
// finishes, dismisses or fails the payment. Successful payments carry the
// gateway signature; cancellations and failures carry the callback token of
// the pending checkout.
type CallbackRequest struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	PaymentID     string `json:"payment_id,omitempty"`
	Signature     string `json:"signature,omitempty"`
	Reason        string `json:"reason,omitempty"`
	CallbackToken string `json:"callback_token,omitempty"`
}

type CallbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type WebhookHandler struct {
	*transport.BaseHandler
	client *Client
}

func NewWebhookHandler(client *Client, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: transport.NewBaseHandler(logger),
		client:      client,
	}
}

func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, err)
		return
	}

	h.Logger.Info("received payment callback",
		"order_id", req.OrderID,
		"status", req.Status,
		"payment_id", req.PaymentID)

	result, err := h.toResult(&req)
	if err == nil {
		err = h.client.Resolve(req.OrderID, result)
	}
	if err != nil {
		if errors.Is(err, ErrUnknownOrder) {
			h.Logger.Warn("payment callback for unknown or settled order", "order_id", req.OrderID)
			err = apperrors.NewNotFoundError("No checkout is waiting for this order", apperrors.ErrCodeSessionNotFound)
		}
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CallbackResponse{
		Status:  "success",
		Message: "callback processed successfully",
	})
}

func (h *WebhookHandler) toResult(req *CallbackRequest) (paymentgatewaytypes.Result, error) {
	if req.OrderID == "" {
		return paymentgatewaytypes.Result{}, apperrors.NewValidationFieldError("order_id", "order_id is required", apperrors.ErrCodeValidationFailed)
	}

	switch paymentgatewaytypes.ResultStatus(req.Status) {
	case paymentgatewaytypes.ResultSuccess:
		if req.PaymentID == "" || req.Signature == "" {
			return paymentgatewaytypes.Result{}, apperrors.NewValidationError("payment_id and signature are required for successful payments", apperrors.ErrCodeValidationFailed)
		}
		if !h.client.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
			h.Logger.Warn("payment callback signature mismatch", "order_id", req.OrderID, "payment_id", req.PaymentID)
			return paymentgatewaytypes.Result{}, apperrors.NewUnauthorizedError("Invalid payment signature", apperrors.ErrCodePaymentFailed)
		}
		return paymentgatewaytypes.Result{
			Status:    paymentgatewaytypes.ResultSuccess,
			PaymentID: req.PaymentID,
			Signature: req.Signature,
		}, nil
	case paymentgatewaytypes.ResultCancelled:
		if err := h.checkToken(req); err != nil {
			return paymentgatewaytypes.Result{}, err
		}
		return paymentgatewaytypes.Result{Status: paymentgatewaytypes.ResultCancelled}, nil
	case paymentgatewaytypes.ResultFailed:
		if err := h.checkToken(req); err != nil {
			return paymentgatewaytypes.Result{}, err
		}
		return paymentgatewaytypes.Result{
			Status:    paymentgatewaytypes.ResultFailed,
			PaymentID: req.PaymentID,
			Reason:    req.Reason,
		}, nil
	default:
		return paymentgatewaytypes.Result{}, apperrors.NewValidationFieldError("status", "status must be one of success, cancelled, failed", apperrors.ErrCodeValidationFailed)
	}
}

func (h *WebhookHandler) checkToken(req *CallbackRequest) error {
	ok, err := h.client.VerifyCallbackToken(req.OrderID, req.CallbackToken)
	if err != nil {
		return err
	}
	if !ok {
		h.Logger.Warn("payment callback token mismatch", "order_id", req.OrderID, "status", req.Status)
		return apperrors.NewUnauthorizedError("Invalid callback token", apperrors.ErrCodePaymentFailed)
	}
	return nil
}

// PendingCheckouts reports how many hosted checkouts are still open.
func (h *WebhookHandler) PendingCheckouts() int {
	return h.client.Pending()
}
