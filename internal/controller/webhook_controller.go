// internal/controller/webhook_controller.go
package controller

import (
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	appErrors "github.com/coldpitch/outreach-backend/internal/errors"
	"github.com/coldpitch/outreach-backend/internal/provider"
	"github.com/coldpitch/outreach-backend/internal/service"
)

// WebhookController receives delivery events and inbound replies from the
// configured provider. The body is buffered once so signature verification
// and parsing read the same bytes.
type WebhookController struct {
	Provider   provider.EmailProvider
	Reconciler *service.Reconciler
}

func (c *WebhookController) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	if !c.Provider.VerifyWebhook(r.Header, body) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	events, err := c.Provider.ParseWebhookEvents(body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	applied := c.Reconciler.HandleEvents(events)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"received": applied,
	})
}

func (c *WebhookController) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	if !c.Provider.VerifyWebhook(r.Header, body) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	inbound, err := c.Provider.ParseInboundEmail(r.Header.Get("Content-Type"), body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	message, err := c.Reconciler.HandleInbound(inbound)
	if err != nil {
		var notFound *appErrors.ErrLeadNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.WithError(err).Error("inbound email handling failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"received":   true,
		"message_id": message.ID,
	})
}
