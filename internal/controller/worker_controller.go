// internal/controller/worker_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/coldpitch/outreach-backend/internal/service"
)

const minSecretLength = 16

// WorkerController exposes the batch trigger endpoint. It is meant to be
// hit by a cron scheduler and is protected by a shared bearer secret.
type WorkerController struct {
	Worker     *service.Worker
	CronSecret string
}

func (c *WorkerController) RunBatch(w http.ResponseWriter, r *http.Request) {
	// A missing or weak secret is a deployment mistake, not a client
	// error; refuse to run rather than run unauthenticated.
	if len(c.CronSecret) < minSecretLength {
		log.Error("cron secret missing or shorter than 16 characters")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":   false,
			"code": "CONFIG_ERROR",
		})
		return
	}

	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if auth == "" || token == auth || token != c.CronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"ok":   false,
			"code": "AUTH_REQUIRED",
		})
		return
	}

	summary, err := c.Worker.RunBatch(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"summary": summary,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
