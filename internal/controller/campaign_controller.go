// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/coldpitch/outreach-backend/internal/errors"
	"github.com/coldpitch/outreach-backend/internal/model"
	"github.com/coldpitch/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var campaign model.Campaign
	if err := json.NewDecoder(r.Body).Decode(&campaign); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if campaign.Name == "" || campaign.FromEmail == "" {
		http.Error(w, "name and from_email are required", http.StatusBadRequest)
		return
	}

	if err := c.CampaignService.CreateCampaign(&campaign); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, &campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	campaigns, total, err := c.CampaignService.ListCampaigns((page-1)*pageSize, pageSize, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": campaigns,
		"pagination": map[string]interface{}{
			"total_count": total,
			"total_pages": totalPages,
			"page":        page,
			"page_size":   pageSize,
		},
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		respondCampaignError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := c.CampaignService.StartCampaign(id)
	if err != nil {
		respondCampaignError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) StopCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cancelled, err := c.CampaignService.StopCampaign(id)
	if err != nil {
		respondCampaignError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": id,
		"cancelled":   cancelled,
	})
}

func respondCampaignError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
