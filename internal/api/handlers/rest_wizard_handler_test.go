package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"corplandlords/wireboard/internal/api/handlers"
	"corplandlords/wireboard/internal/models"
	"corplandlords/wireboard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newWizardRouter(svc *MockWizardService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRestWizardHandler(svc)
	r := gin.New()
	r.POST("/v1/requests", h.Start)
	r.GET("/v1/requests/:id", h.Get)
	r.PUT("/v1/requests/:id/contact", h.SaveContact)
	r.PUT("/v1/requests/:id/details", h.SaveDetails)
	r.POST("/v1/requests/:id/complete", h.Complete)
	r.POST("/v1/requests/:id/submit", h.Submit)
	r.POST("/v1/requests/:id/edit", h.Edit)
	r.DELETE("/v1/requests/:id", h.Cancel)
	return r
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRestWizardHandler_Start(t *testing.T) {
	svc := new(MockWizardService)
	r := newWizardRouter(svc)
	id := primitive.NewObjectID()

	contact := &services.ContactInput{FullName: "Ada Obi", Email: "ada@example.com", Phone: "08012345678"}
	svc.On("Start", mock.Anything, models.UsingAgentNo, contact).
		Return(&models.Wire{ID: id, UsingAgent: models.UsingAgentNo, WizardState: models.StateContactInfoCollected}, nil)

	w := send(r, http.MethodPost, "/v1/requests",
		`{"usingAgent":"No","contact":{"fullName":"Ada Obi","email":"ada@example.com","phone":"08012345678"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), id.Hex())
	assert.Contains(t, w.Body.String(), `"wizardState":"ContactInfoCollected"`)
	svc.AssertExpectations(t)
}

func TestRestWizardHandler_StartValidation(t *testing.T) {
	svc := new(MockWizardService)
	r := newWizardRouter(svc)

	svc.On("Start", mock.Anything, models.UsingAgent("Maybe"), (*services.ContactInput)(nil)).
		Return(nil, models.NewValidationError("usingAgent", "must be Yes or No"))

	w := send(r, http.MethodPost, "/v1/requests", `{"usingAgent":"Maybe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "must be Yes or No", body.Fields["usingAgent"])

	w = send(r, http.MethodPost, "/v1/requests", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestWizardHandler_SaveDetailsBindsFlatDocument(t *testing.T) {
	svc := new(MockWizardService)
	r := newWizardRouter(svc)
	id := primitive.NewObjectID()

	svc.On("SaveDetails", mock.Anything, id, mock.MatchedBy(func(in services.DetailsInput) bool {
		d, ok := in.Details.(*models.RentDetails)
		return ok &&
			d.Budget == models.BudgetRange{Min: 500000, Max: 1500000} &&
			d.Property.Group() == models.GroupBareLand &&
			d.Property.BareLand.Units == 2 &&
			len(in.Locations) == 1 && in.Locations[0] == "Lekki"
	})).Return(&models.Wire{ID: id}, nil)

	body := `{
		"requestType": "Rent",
		"locations": ["Lekki"],
		"minBudget": 500000,
		"maxBudget": 1500000,
		"paymentOptions": "Yearly",
		"propertyType": "Bare Land",
		"useCase": "Residential",
		"landSize": "Acres",
		"units": 2,
		"rentDuration": "1 year"
	}`
	w := send(r, http.MethodPut, "/v1/requests/"+id.Hex()+"/details", body)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestRestWizardHandler_ErrorMapping(t *testing.T) {
	svc := new(MockWizardService)
	r := newWizardRouter(svc)
	conflict := primitive.NewObjectID()
	missing := primitive.NewObjectID()
	broken := primitive.NewObjectID()

	svc.On("Complete", mock.Anything, conflict).Return(nil, fmt.Errorf("%w: Unstarted -> FormCompleted", services.ErrInvalidTransition))
	svc.On("Complete", mock.Anything, missing).Return(nil, services.ErrNotFound)
	svc.On("Complete", mock.Anything, broken).Return(nil, errors.New("boom"))

	assert.Equal(t, http.StatusConflict, send(r, http.MethodPost, "/v1/requests/"+conflict.Hex()+"/complete", "").Code)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodPost, "/v1/requests/"+missing.Hex()+"/complete", "").Code)
	assert.Equal(t, http.StatusInternalServerError, send(r, http.MethodPost, "/v1/requests/"+broken.Hex()+"/complete", "").Code)
}

func TestRestWizardHandler_SubmitAndCancel(t *testing.T) {
	svc := new(MockWizardService)
	r := newWizardRouter(svc)
	id := primitive.NewObjectID()

	svc.On("Submit", mock.Anything, id).Return(&services.SubmissionReceipt{
		Wire:        &models.Wire{ID: id, RequestID: "ABC123456"},
		RequestID:   "ABC123456",
		PaymentLink: "https://pay.example/x",
		Fee:         3100,
	}, nil)
	svc.On("Cancel", mock.Anything, id).Return(nil)

	w := send(r, http.MethodPost, "/v1/requests/"+id.Hex()+"/submit", "")
	require.Equal(t, http.StatusOK, w.Code)
	var receipt struct {
		RequestID   string `json:"requestID"`
		PaymentLink string `json:"paymentLink"`
		Fee         int64  `json:"fee"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, "ABC123456", receipt.RequestID)
	assert.Equal(t, int64(3100), receipt.Fee)

	assert.Equal(t, http.StatusNoContent, send(r, http.MethodDelete, "/v1/requests/"+id.Hex(), "").Code)
	svc.AssertExpectations(t)
}
