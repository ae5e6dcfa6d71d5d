package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	paymentgatewaytypes "github.com/frahmantamala/donation-checkout/internal/core/datamodel/paymentgateway"
)

var (
	// ErrPaymentCancelled is returned when the donor dismisses the hosted
	// checkout or the wait for it is abandoned.
	ErrPaymentCancelled = errors.New("payment cancelled")
	// ErrUnknownOrder is returned by Resolve for orders that are not waiting
	// for a result, including ones that were already resolved.
	ErrUnknownOrder = errors.New("no pending checkout for order")
)

// GatewayError is a payment the gateway reported as failed, or an order it
// refused to create.
type GatewayError struct {
	OrderID string
	Reason  string
}

func (e *GatewayError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("payment gateway error: %s", e.Reason)
	}
	return fmt.Sprintf("payment failed for order %s: %s", e.OrderID, e.Reason)
}

type Config struct {
	BaseURL         string
	KeyID           string
	KeySecret       string
	Currency        string
	CheckoutTimeout time.Duration
	HTTPClient      *http.Client
}

// Client creates gateway orders and waits for the hosted checkout of each
// order to report back through Resolve.
type Client struct {
	baseURL         string
	keyID           string
	keySecret       string
	currency        string
	checkoutTimeout time.Duration
	httpClient      *http.Client
	logger          *slog.Logger

	mu      sync.Mutex
	pending map[string]*waiter
}

// waiter is one order waiting for its hosted checkout. token is handed only
// to the checkout's owner and authenticates cancel and failure callbacks,
// which the gateway does not sign.
type waiter struct {
	results chan paymentgatewaytypes.Result
	token   string
}

func NewClient(config Config, logger *slog.Logger) *Client {
	checkoutTimeout := config.CheckoutTimeout
	if checkoutTimeout <= 0 {
		checkoutTimeout = 15 * time.Minute
	}

	currency := config.Currency
	if currency == "" {
		currency = "INR"
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		keyID:           config.KeyID,
		keySecret:       config.KeySecret,
		currency:        currency,
		checkoutTimeout: checkoutTimeout,
		httpClient:      httpClient,
		logger:          logger,
		pending:         make(map[string]*waiter),
	}
}

// ProcessPayment runs one hosted checkout: it creates an order, announces it
// through onCheckout and blocks until the order is resolved, ctx is done or
// the checkout window expires. It resolves exactly once.
func (c *Client) ProcessPayment(ctx context.Context, req *paymentgatewaytypes.PaymentRequest, onCheckout func(paymentgatewaytypes.PendingCheckout)) (*paymentgatewaytypes.Confirmation, error) {
	if req.Currency == "" {
		req.Currency = c.currency
	}
	if err := req.Validate(); err != nil {
		c.logger.Error("payment request validation failed", "error", err)
		return nil, &GatewayError{Reason: err.Error()}
	}

	order, err := c.CreateOrder(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentCancelled, ctx.Err())
		}
		return nil, &GatewayError{Reason: err.Error()}
	}

	w := c.register(order.ID)
	defer c.forget(order.ID)

	if onCheckout != nil {
		onCheckout(paymentgatewaytypes.PendingCheckout{
			KeyID:         c.keyID,
			OrderID:       order.ID,
			Amount:        order.Amount,
			Currency:      order.Currency,
			Description:   req.Description,
			Donor:         req.Donor,
			CallbackToken: w.token,
		})
	}

	c.logger.Info("waiting for hosted checkout",
		"order_id", order.ID,
		"amount", order.Amount,
		"timeout", c.checkoutTimeout)

	waitCtx, cancel := context.WithTimeout(ctx, c.checkoutTimeout)
	defer cancel()

	select {
	case res := <-w.results:
		return c.outcome(order.ID, res)
	case <-waitCtx.Done():
		c.logger.Warn("hosted checkout abandoned", "order_id", order.ID, "reason", waitCtx.Err())
		return nil, fmt.Errorf("%w: %v", ErrPaymentCancelled, waitCtx.Err())
	}
}

func (c *Client) outcome(orderID string, res paymentgatewaytypes.Result) (*paymentgatewaytypes.Confirmation, error) {
	switch res.Status {
	case paymentgatewaytypes.ResultSuccess:
		if res.PaymentID == "" || res.Signature == "" {
			return nil, &GatewayError{OrderID: orderID, Reason: "incomplete payment confirmation"}
		}
		c.logger.Info("hosted checkout confirmed", "order_id", orderID, "payment_id", res.PaymentID)
		return &paymentgatewaytypes.Confirmation{
			PaymentID: res.PaymentID,
			OrderID:   orderID,
			Signature: res.Signature,
		}, nil
	case paymentgatewaytypes.ResultCancelled:
		c.logger.Info("hosted checkout cancelled by donor", "order_id", orderID)
		return nil, ErrPaymentCancelled
	default:
		reason := res.Reason
		if reason == "" {
			reason = "payment was declined"
		}
		c.logger.Warn("hosted checkout failed", "order_id", orderID, "reason", reason)
		return nil, &GatewayError{OrderID: orderID, Reason: reason}
	}
}

// Resolve delivers the outcome of a hosted checkout. Only the first result
// for an order is accepted.
func (c *Client) Resolve(orderID string, result paymentgatewaytypes.Result) error {
	c.mu.Lock()
	w, ok := c.pending[orderID]
	if ok {
		delete(c.pending, orderID)
	}
	c.mu.Unlock()

	if !ok {
		return ErrUnknownOrder
	}

	w.results <- result
	return nil
}

// Pending returns the number of orders waiting for a result.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) register(orderID string) *waiter {
	w := &waiter{
		results: make(chan paymentgatewaytypes.Result, 1),
		token:   strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	c.mu.Lock()
	c.pending[orderID] = w
	c.mu.Unlock()
	return w
}

func (c *Client) forget(orderID string) {
	c.mu.Lock()
	delete(c.pending, orderID)
	c.mu.Unlock()
}

// CreateOrder registers an order with the gateway's orders API.
func (c *Client) CreateOrder(ctx context.Context, req *paymentgatewaytypes.PaymentRequest) (*paymentgatewaytypes.Order, error) {
	receipt := req.Receipt
	if receipt == "" {
		receipt = "don_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	}

	payload := map[string]interface{}{
		"amount":   ToMinorUnits(req.Amount),
		"currency": req.Currency,
		"receipt":  receipt,
		"notes": map[string]string{
			"description": req.Description,
			"donor_email": req.Donor.Email,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("order request failed", "error", err, "receipt", receipt)
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var order paymentgatewaytypes.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("gateway returned an order without id")
	}

	c.logger.Info("gateway order created",
		"order_id", order.ID,
		"amount", order.Amount,
		"currency", order.Currency,
		"receipt", order.Receipt)

	return &order, nil
}

// ToMinorUnits converts an amount in rupees to paise.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
