package paymentgateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the checkout signature the gateway attaches to a successful
// payment: hex(HMAC-SHA256(order_id + "|" + payment_id, key_secret)).
func Sign(orderID, paymentID, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature authenticates the payment.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Sign(orderID, paymentID, c.keySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyCallbackToken checks the token of a pending order. It returns
// ErrUnknownOrder when nothing waits for the order.
func (c *Client) VerifyCallbackToken(orderID, token string) (bool, error) {
	c.mu.Lock()
	w, ok := c.pending[orderID]
	c.mu.Unlock()
	if !ok {
		return false, ErrUnknownOrder
	}
	return token != "" && hmac.Equal([]byte(w.token), []byte(token)), nil
}
