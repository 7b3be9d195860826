// internal/controller/unsubscribe_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/repository"
)

// UnsubscribeController handles one-click unsubscribe confirmations from
// the footer link in outbound emails.
type UnsubscribeController struct {
	Unsubscribes repository.UnsubscribeRepositoryInterface
	Leads        repository.LeadRepositoryInterface
}

func (c *UnsubscribeController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	record, err := c.Unsubscribes.GetByToken(body.Token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "invalid token", http.StatusNotFound)
		return
	}

	if record.LeadID != "" {
		if err := c.Leads.UpdateStatus(record.LeadID, model.LeadUnsubscribed); err != nil {
			log.WithError(err).WithField("lead_id", record.LeadID).Error("failed to update lead status")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
