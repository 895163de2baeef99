package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ISubmissionNotifier delivers the submission confirmation out of band.
type ISubmissionNotifier interface {
	NotifySubmitted(ctx context.Context, wire *models.Wire) error
}

// ContactInput is the contact step payload. Company is only used on the agent branch.
type ContactInput struct {
	FullName string `json:"fullName" validate:"required,max=256"`
	Email    string `json:"email" validate:"required,wireemail"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Company  string `json:"company" validate:"max=256"`
}

func (c ContactInput) trimmed() ContactInput {
	return ContactInput{
		FullName: strings.TrimSpace(c.FullName),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
		Company:  strings.TrimSpace(c.Company),
	}
}

// DetailsInput is the type-specific step payload.
type DetailsInput struct {
	Locations    []string
	BuildingType string
	Others       string
	Details      models.Details
}

// SubmissionReceipt is returned on successful submission.
type SubmissionReceipt struct {
	Wire        *models.Wire `json:"wire"`
	RequestID   string       `json:"requestID"`
	PaymentLink string       `json:"paymentLink"`
	Fee         int64        `json:"fee"`
}

// IWizardService drives a wire through the submission wizard.
type IWizardService interface {
	Start(ctx context.Context, usingAgent models.UsingAgent, contact *ContactInput) (*models.Wire, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	SaveContact(ctx context.Context, id primitive.ObjectID, contact ContactInput) (*models.Wire, error)
	SaveDetails(ctx context.Context, id primitive.ObjectID, input DetailsInput) (*models.Wire, error)
	Complete(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	Submit(ctx context.Context, id primitive.ObjectID) (*SubmissionReceipt, error)
	Edit(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	Cancel(ctx context.Context, id primitive.ObjectID) error
}

type wizardService struct {
	wires    IWireService
	notifier ISubmissionNotifier
	cfg      *config.Config
}

// NewWizardService creates a new WizardService. notifier may be nil.
func NewWizardService(wires IWireService, notifier ISubmissionNotifier, cfg *config.Config) IWizardService {
	return &wizardService{wires: wires, notifier: notifier, cfg: cfg}
}

var contactValidator = newContactValidator()

func newContactValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("wireemail", func(fl validator.FieldLevel) bool {
		return models.ValidEmail(fl.Field().String())
	})
	return v
}

func contactMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "wireemail":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "invalid"
}

// validateContact runs the field rules; the customer branch also limits phone length.
func validateContact(c ContactInput, usingAgent models.UsingAgent) error {
	var v ValidationError
	if err := contactValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			v.Add(fe.Field(), contactMessage(fe))
		}
	}
	if usingAgent == models.UsingAgentNo && c.Phone != "" && !models.ValidPhone(c.Phone) {
		v.Add("phone", "must be 8 to 11 characters")
	}
	return v.Err()
}

func contactUpdate(usingAgent models.UsingAgent, c ContactInput) WireUpdate {
	if usingAgent == models.UsingAgentYes {
		return WireUpdate{
			"agentFullName": c.FullName,
			"agentEmail":    c.Email,
			"agentPhone":    c.Phone,
			"agentCompany":  c.Company,
		}
	}
	return WireUpdate{
		"customerFullName": c.FullName,
		"customerEmail":    c.Email,
		"customerPhone":    c.Phone,
	}
}

func (s *wizardService) load(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	w, err := s.wires.FindWireFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNotFound
	}
	return w, nil
}

// Start creates the wire once the agent-or-customer branch is chosen. The contact
// step may be supplied at the same time.
func (s *wizardService) Start(ctx context.Context, usingAgent models.UsingAgent, contact *ContactInput) (*models.Wire, error) {
	if !usingAgent.Valid() {
		return nil, models.NewValidationError("usingAgent", "must be Yes or No")
	}
	state, err := NextWizardState(models.StateUnstarted, EventChooseBranch)
	if err != nil {
		return nil, err
	}
	wire := &models.Wire{UsingAgent: usingAgent, Locations: []string{}}

	if contact != nil {
		c := contact.trimmed()
		if err := validateContact(c, usingAgent); err != nil {
			return nil, err
		}
		if usingAgent == models.UsingAgentYes {
			wire.Agent = models.AgentDetails{FullName: c.FullName, Email: c.Email, Phone: c.Phone, Company: c.Company}
		} else {
			wire.Customer = models.ContactDetails{FullName: c.FullName, Email: c.Email, Phone: c.Phone}
		}
		if state, err = NextWizardState(state, EventSaveContact); err != nil {
			return nil, err
		}
	}
	wire.WizardState = state

	id, err := s.wires.CreateWire(ctx, wire)
	if err != nil {
		return nil, err
	}
	slog.Info("wizard started", "wire_id", id.Hex(), "using_agent", string(usingAgent))
	return s.load(ctx, id)
}

func (s *wizardService) Get(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	return s.load(ctx, id)
}

func (s *wizardService) SaveContact(ctx context.Context, id primitive.ObjectID, contact ContactInput) (*models.Wire, error) {
	c := contact.trimmed()
	// branch-independent rules first, before touching the store
	if err := validateContact(c, models.UsingAgentUnset); err != nil {
		return nil, err
	}
	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := NextWizardState(w.WizardState, EventSaveContact)
	if err != nil {
		return nil, err
	}
	if err := validateContact(c, w.UsingAgent); err != nil {
		return nil, err
	}

	updates := contactUpdate(w.UsingAgent, c)
	updates["wizardState"] = string(next)
	if err := s.wires.UpdateWire(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *wizardService) SaveDetails(ctx context.Context, id primitive.ObjectID, input DetailsInput) (*models.Wire, error) {
	if input.Details == nil {
		return nil, models.NewValidationError("requestType", "required")
	}
	if err := input.Details.Validate(); err != nil {
		return nil, err
	}
	locations := cleanLocations(input.Locations)
	if locations == nil {
		locations = []string{}
	}

	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current := w.RequestType(); current != "" && current != input.Details.RequestType() {
		return nil, fmt.Errorf("%w: requestType is %q", ErrImmutableField, string(current))
	}
	next, err := NextWizardState(w.WizardState, EventSaveDetails)
	if err != nil {
		return nil, err
	}

	base := WireUpdate{
		"locations":    locations,
		"buildingType": strings.TrimSpace(input.BuildingType),
		"others":       strings.TrimSpace(input.Others),
		"wizardState":  string(next),
	}
	if err := s.wires.SaveWireDetails(ctx, id, input.Details, base); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Complete marks the form ready for submission once every required step is done.
func (s *wizardService) Complete(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := NextWizardState(w.WizardState, EventComplete)
	if err != nil {
		return nil, err
	}

	var v ValidationError
	if len(w.Locations) == 0 {
		v.Add("locations", "at least one location is required")
	}
	if _, _, ok := w.Requester(); !ok {
		v.Add("usingAgent", "must be Yes or No")
	}
	if w.Details == nil {
		v.Add("requestType", "required")
	} else if err := w.Validate(); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		for f, r := range ve.Fields {
			v.Add(f, r)
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.wires.UpdateWire(ctx, id, WireUpdate{"formCompleted": true, "wizardState": string(next)}); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Submit stamps and identifies a completed wire and fires the confirmation mail.
// Mail failures are logged only.
func (s *wizardService) Submit(ctx context.Context, id primitive.ObjectID) (*SubmissionReceipt, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := NextWizardState(w.WizardState, EventSubmit); err != nil {
		return nil, err
	}
	if !w.FormCompleted {
		return nil, invalidTransition(w.WizardState, models.StateSubmitted)
	}

	submitted, err := s.wires.SubmitWire(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifySubmitted(ctx, submitted); err != nil {
			slog.Error("failed to queue submission mail", "wire_id", id.Hex(), "error", err)
		}
	}
	return &SubmissionReceipt{
		Wire:        submitted,
		RequestID:   submitted.RequestID,
		PaymentLink: s.cfg.PaymentLinkURL,
		Fee:         s.cfg.ListingFee,
	}, nil
}

// Edit reopens a completed or submitted-but-unpublished wire at the contact step.
func (s *wizardService) Edit(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := NextWizardState(w.WizardState, EventEdit)
	if err != nil {
		return nil, err
	}
	if w.Published {
		return nil, fmt.Errorf("%w: wire is already published", ErrInvalidTransition)
	}

	updates := WireUpdate{"formCompleted": false, "submitted": false, "wizardState": string(next)}
	if err := s.wires.UpdateWire(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Cancel deletes a wire that has not been submitted. Cancelling an absent wire is a no-op.
func (s *wizardService) Cancel(ctx context.Context, id primitive.ObjectID) error {
	w, err := s.wires.FindWireFresh(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return nil
	}
	if _, err := NextWizardState(w.WizardState, EventCancel); err != nil {
		return err
	}
	if err := s.wires.DeleteWire(ctx, id); err != nil {
		return err
	}
	slog.Info("wizard cancelled", "wire_id", id.Hex())
	return nil
}
