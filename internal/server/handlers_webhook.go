package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Payment provider events that grant the Premium tier.
const (
	eventOrderCreated        = "order.created"
	eventSubscriptionCreated = "subscription.created"
)

// PaymentEvent is the subset of the payment provider's webhook payload we read.
type PaymentEvent struct {
	Meta struct {
		EventName string `json:"event_name"`
	} `json:"meta"`
	Data struct {
		ID         json.RawMessage `json:"id"`
		Attributes struct {
			CustomerEmail string `json:"customer_email"`
			ProductName   string `json:"product_name,omitempty"`
			RenewsAt      string `json:"renews_at,omitempty"`
		} `json:"attributes"`
	} `json:"data"`
}

// SubscriptionID returns data.id, which the provider sends as a string or a number.
func (e *PaymentEvent) SubscriptionID() string {
	var id string
	if err := json.Unmarshal(e.Data.ID, &id); err == nil {
		return id
	}
	return strings.TrimSpace(string(e.Data.ID))
}

// validSignature checks the hex HMAC-SHA256 of body in X-Signature.
func validSignature(secret string, body []byte, signature string) bool {
	want, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// handlePaymentWebhook upgrades the user whose email matches the paying
// customer. Unknown events, a missing email and unmatched users are
// acknowledged with 200 so the provider does not retry forever.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if s.webhookSecret != "" && !validSignature(s.webhookSecret, body, r.Header.Get("X-Signature")) {
		s.logger.Warn("Payment webhook rejected: invalid signature")
		s.errorResponse(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event PaymentEvent
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&event); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	log := s.logger.WithField("event", event.Meta.EventName)
	ack := map[string]bool{"success": true}

	switch event.Meta.EventName {
	case eventOrderCreated, eventSubscriptionCreated:
	default:
		log.Debug("Ignoring payment event")
		s.jsonResponse(w, http.StatusOK, ack)
		return
	}

	email := strings.TrimSpace(event.Data.Attributes.CustomerEmail)
	if email == "" {
		log.Info("Payment event has no customer email")
		s.jsonResponse(w, http.StatusOK, ack)
		return
	}

	upgraded, err := s.gate.UpgradeByEmail(r.Context(), email, event.SubscriptionID())
	if err != nil {
		log.WithError(err).Error("Failed to apply payment event")
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.WithFields(logrus.Fields{
		"subscription_id": event.SubscriptionID(),
		"upgraded":        upgraded,
	}).Info("Payment event processed")
	s.jsonResponse(w, http.StatusOK, ack)
}
