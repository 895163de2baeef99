package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"corplandlords/wireboard/internal/utils"
)

// ValidationError maps offending field names to human-readable reasons.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a reason for field, keeping the first one reported.
func (e *ValidationError) Add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = reason
	}
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError is a shortcut for a single-field failure.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the contact-form email check.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// ValidPhone applies the customer phone rule: 8 to 11 characters.
func ValidPhone(s string) bool {
	n := len(strings.TrimSpace(s))
	return n >= 8 && n <= 11
}

func validateBudget(v *ValidationError, b BudgetRange) {
	if !b.Known() {
		v.Add("minBudget", "minBudget and maxBudget are both required")
		return
	}
	if b.Min < 0 {
		v.Add("minBudget", "must not be negative")
	}
	if b.Max < 0 {
		v.Add("maxBudget", "must not be negative")
	}
	if b.Min > b.Max {
		v.Add("maxBudget", "must be greater than or equal to minBudget")
	}
}

func validateProperty(v *ValidationError, p PropertySpec) {
	if !p.PropertyType.Valid() {
		v.Add("propertyType", "unknown property type")
		return
	}
	if !p.UseCase.Valid() {
		v.Add("useCase", "unknown use case")
	}
	switch p.Group() {
	case GroupBareLand:
		if p.BareLand == nil {
			v.Add("landSize", "required for bare land")
			return
		}
		if p.Residential != nil || p.Commercial != nil {
			v.Add("propertyType", "bare land carries no residential or commercial fields")
		}
		if !p.BareLand.LandSize.Valid() {
			v.Add("landSize", "unknown land size unit")
		}
		if p.BareLand.Units < 1 {
			v.Add("units", "must be at least 1")
		}
	case GroupResidential:
		if p.Residential == nil {
			v.Add("roomsNo", "required for residential property")
			return
		}
		if p.BareLand != nil || p.Commercial != nil {
			v.Add("useCase", "residential property carries no bare land or commercial fields")
		}
		if p.Residential.RoomsNo < 0 {
			v.Add("roomsNo", "must not be negative")
		}
		if p.Residential.ToiletBaths < 0 {
			v.Add("toiletBaths", "must not be negative")
		}
		if p.Residential.BuildingStructure != "" && !p.Residential.BuildingStructure.Valid() {
			v.Add("buildingStructure", "unknown building structure")
		}
	case GroupCommercial:
		if p.Commercial == nil {
			v.Add("commercialUseCase", "required for commercial property")
			return
		}
		if p.BareLand != nil || p.Residential != nil {
			v.Add("useCase", "commercial property carries no bare land or residential fields")
		}
		if p.Commercial.FloorSpace < 0 {
			v.Add("floorSpace", "must not be negative")
		}
	}
}

func (d *RentDetails) Validate() error {
	var v ValidationError
	validateBudget(&v, d.Budget)
	if !d.PaymentOptions.Valid() {
		v.Add("paymentOptions", "unknown payment option")
	}
	if !d.RentDuration.Valid() {
		v.Add("rentDuration", "unknown rent duration")
	}
	validateProperty(&v, d.Property)
	return v.Err()
}

func (d *BuyDetails) Validate() error {
	var v ValidationError
	validateBudget(&v, d.Budget)
	if !d.PaymentOptions.Valid() {
		v.Add("paymentOptions", "unknown payment option")
	}
	validateProperty(&v, d.Property)
	return v.Err()
}

func (d *ShortLetDetails) Validate() error {
	var v ValidationError
	validateBudget(&v, d.Budget)
	if d.CheckInDate.IsZero() {
		v.Add("checkInDate", "required")
	}
	if d.CheckOutDate.IsZero() {
		v.Add("checkOutDate", "required")
	} else if !d.CheckInDate.IsZero() && !d.CheckOutDate.After(d.CheckInDate) {
		v.Add("checkOutDate", "must be after checkInDate")
	}
	if !d.UseCase.Valid() {
		v.Add("shortLetUseCase", "unknown short let use case")
	}
	if d.Units < 0 {
		v.Add("shortLetUnits", "must not be negative")
	}
	if d.RoomsNo < 0 {
		v.Add("roomsNo", "must not be negative")
	}
	if d.ToiletBaths < 0 {
		v.Add("toiletBaths", "must not be negative")
	}
	return v.Err()
}

func (d *JointVentureDetails) Validate() error {
	var v ValidationError
	if !d.DevelopmentType.Valid() {
		v.Add("jvDevelopmentType", "unknown development type")
	}
	if d.LandSizeSqm <= 0 {
		v.Add("jvLandSizeSqm", "must be positive")
	}
	if !d.PartyType.Valid() {
		v.Add("jvPartyType", "unknown party type")
	}
	return v.Err()
}

// Validate checks the base fields and, when present, the variant details.
func (w *Wire) Validate() error {
	var v ValidationError
	for i, loc := range w.Locations {
		if strings.TrimSpace(loc) == "" {
			v.Add(fmt.Sprintf("locations[%d]", i), "must not be empty")
		}
	}
	if w.UsingAgent != UsingAgentUnset && !w.UsingAgent.Valid() {
		v.Add("usingAgent", "must be Yes or No")
	}
	if w.RequestID != "" && !utils.IsValidRequestID(w.RequestID) {
		v.Add("requestID", "must be three letters followed by six digits")
	}
	if w.Details != nil {
		if err := w.Details.Validate(); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				for f, r := range ve.Fields {
					v.Add(f, r)
				}
			} else {
				v.Add("details", err.Error())
			}
		}
	}
	return v.Err()
}
