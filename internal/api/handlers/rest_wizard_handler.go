package handlers

import (
	"context"
	"net/http"

	"corplandlords/wireboard/internal/models"
	"corplandlords/wireboard/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RestWizardHandler drives the request submission wizard.
type RestWizardHandler struct {
	wizard services.IWizardService
}

func NewRestWizardHandler(wizard services.IWizardService) *RestWizardHandler {
	return &RestWizardHandler{wizard: wizard}
}

type startRequest struct {
	UsingAgent models.UsingAgent      `json:"usingAgent"`
	Contact    *services.ContactInput `json:"contact"`
}

// Start handles POST /v1/requests
func (h *RestWizardHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	w, err := h.wizard.Start(c.Request.Context(), req.UsingAgent, req.Contact)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// Get handles GET /v1/requests/:id
func (h *RestWizardHandler) Get(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	w, err := h.wizard.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// SaveContact handles PUT /v1/requests/:id/contact
func (h *RestWizardHandler) SaveContact(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	var contact services.ContactInput
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	w, err := h.wizard.SaveContact(c.Request.Context(), id, contact)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// SaveDetails handles PUT /v1/requests/:id/details. The body uses the stored
// document layout: requestType plus the fields of that type.
func (h *RestWizardHandler) SaveDetails(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	var body models.Wire
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	w, err := h.wizard.SaveDetails(c.Request.Context(), id, services.DetailsInput{
		Locations:    body.Locations,
		BuildingType: body.BuildingType,
		Others:       body.Others,
		Details:      body.Details,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Complete handles POST /v1/requests/:id/complete
func (h *RestWizardHandler) Complete(c *gin.Context) {
	h.step(c, h.wizard.Complete)
}

// Edit handles POST /v1/requests/:id/edit
func (h *RestWizardHandler) Edit(c *gin.Context) {
	h.step(c, h.wizard.Edit)
}

func (h *RestWizardHandler) step(c *gin.Context, fn func(context.Context, primitive.ObjectID) (*models.Wire, error)) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	w, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Submit handles POST /v1/requests/:id/submit
func (h *RestWizardHandler) Submit(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	receipt, err := h.wizard.Submit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// Cancel handles DELETE /v1/requests/:id
func (h *RestWizardHandler) Cancel(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	if err := h.wizard.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
