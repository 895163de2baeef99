package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestType discriminates the four wire variants.
type RequestType string

const (
	RequestTypeRent         RequestType = "Rent"
	RequestTypeBuy          RequestType = "Buy"
	RequestTypeShortLet     RequestType = "Short Let"
	RequestTypeJointVenture RequestType = "Joint Venture"
)

// RequestTypes lists every variant in display order.
var RequestTypes = []RequestType{RequestTypeBuy, RequestTypeRent, RequestTypeShortLet, RequestTypeJointVenture}

func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeRent, RequestTypeBuy, RequestTypeShortLet, RequestTypeJointVenture:
		return true
	}
	return false
}

// ParseRequestType accepts the stored spelling as well as case and space variations
// ("short let", "ShortLet"). An empty string or "All" yields "" with ok == true.
func ParseRequestType(s string) (RequestType, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch key {
	case "", "all":
		return "", true
	case "rent":
		return RequestTypeRent, true
	case "buy":
		return RequestTypeBuy, true
	case "shortlet":
		return RequestTypeShortLet, true
	case "jointventure":
		return RequestTypeJointVenture, true
	}
	return "", false
}

// UsingAgent is the tri-state flag choosing which contact subset is authoritative.
type UsingAgent string

const (
	UsingAgentUnset UsingAgent = ""
	UsingAgentYes   UsingAgent = "Yes"
	UsingAgentNo    UsingAgent = "No"
)

func (u UsingAgent) Valid() bool { return u == UsingAgentYes || u == UsingAgentNo }

type PaymentOption string

const (
	PaymentDaily       PaymentOption = "Daily"
	PaymentMonthly     PaymentOption = "Monthly"
	PaymentYearly      PaymentOption = "Yearly"
	PaymentOutright    PaymentOption = "Outright"
	PaymentInstallment PaymentOption = "Installment"
)

func (p PaymentOption) Valid() bool {
	switch p {
	case PaymentDaily, PaymentMonthly, PaymentYearly, PaymentOutright, PaymentInstallment:
		return true
	}
	return false
}

type PropertyType string

const (
	PropertyBareLand          PropertyType = "Bare Land"
	PropertyOffPlan           PropertyType = "Off Plan"
	PropertyUnderConstruction PropertyType = "Under Construction"
	PropertyCompleted         PropertyType = "Completed"
)

func (p PropertyType) Valid() bool {
	switch p {
	case PropertyBareLand, PropertyOffPlan, PropertyUnderConstruction, PropertyCompleted:
		return true
	}
	return false
}

type UseCase string

const (
	UseCaseResidential UseCase = "Residential"
	UseCaseCommercial  UseCase = "Commercial"
)

func (u UseCase) Valid() bool { return u == UseCaseResidential || u == UseCaseCommercial }

type BuildingStructure string

const (
	StructureDetached     BuildingStructure = "Detached"
	StructureSemiDetached BuildingStructure = "Semi-Detached"
	StructureTerrace      BuildingStructure = "Terrace"
	StructureAny          BuildingStructure = "Any of the above"
)

func (b BuildingStructure) Valid() bool {
	switch b {
	case StructureDetached, StructureSemiDetached, StructureTerrace, StructureAny:
		return true
	}
	return false
}

type LandSizeUnit string

const (
	LandPlot     LandSizeUnit = "Plot"
	LandAcres    LandSizeUnit = "Acres"
	LandHectares LandSizeUnit = "Hectares"
)

func (l LandSizeUnit) Valid() bool { return l == LandPlot || l == LandAcres || l == LandHectares }

type RentDuration string

const (
	Rent6Months     RentDuration = "6 months"
	Rent1Year       RentDuration = "1 year"
	Rent2Years      RentDuration = "2 years"
	Rent3Years      RentDuration = "3 years"
	Rent4Years      RentDuration = "4 years"
	Rent5Years      RentDuration = "5 years"
	RentAbove5Years RentDuration = "Above 5 years"
)

func (r RentDuration) Valid() bool {
	switch r {
	case Rent6Months, Rent1Year, Rent2Years, Rent3Years, Rent4Years, Rent5Years, RentAbove5Years:
		return true
	}
	return false
}

type ShortLetUseCase string

const (
	ShortLetStaycation      ShortLetUseCase = "Personal Staycation"
	ShortLetFamilyVacation  ShortLetUseCase = "Family Vacation"
	ShortLetWorkRetreat     ShortLetUseCase = "Work Retreat"
	ShortLetMediaProduction ShortLetUseCase = "Media Production"
	ShortLetHouseParty      ShortLetUseCase = "House Party"
	ShortLetOthers          ShortLetUseCase = "Others"
)

func (s ShortLetUseCase) Valid() bool {
	switch s {
	case ShortLetStaycation, ShortLetFamilyVacation, ShortLetWorkRetreat, ShortLetMediaProduction, ShortLetHouseParty, ShortLetOthers:
		return true
	}
	return false
}

type JVDevelopmentType string

const (
	JVResidential JVDevelopmentType = "Residential"
	JVCommercial  JVDevelopmentType = "Commercial"
	JVMixedUse    JVDevelopmentType = "Mixed Use"
)

func (j JVDevelopmentType) Valid() bool {
	return j == JVResidential || j == JVCommercial || j == JVMixedUse
}

type JVPartyType string

const (
	JVLandOwnerSeekingDeveloper JVPartyType = "Land Owner seeking Developer"
	JVDeveloperSeekingLandOwner JVPartyType = "Developer seeking Land Owner"
)

func (j JVPartyType) Valid() bool {
	return j == JVLandOwnerSeekingDeveloper || j == JVDeveloperSeekingLandOwner
}

// ContactDetails is the customer contact triple.
type ContactDetails struct {
	FullName string
	Email    string
	Phone    string
}

// AgentDetails is the agent contact quadruple.
type AgentDetails struct {
	FullName string
	Email    string
	Phone    string
	Company  string
}

// Wire is a property request. Base fields are shared by every variant; the
// variant-specific group lives in Details, which stays nil until the wizard
// records the request type.
type Wire struct {
	ID            primitive.ObjectID
	Locations     []string
	Time          time.Time
	UpdatedAt     time.Time
	Submitted     bool
	Published     bool
	FormCompleted bool
	UsingAgent    UsingAgent
	Others        string
	Likes         []string
	GoodBudget    []string
	LowBudget     []string
	Responses     []string
	Customer      ContactDetails
	Agent         AgentDetails
	RequestID     string
	BuildingType  string
	WizardState   WizardState
	Details       Details
}

// RequestType returns the variant discriminator, or "" when no variant is recorded yet.
func (w *Wire) RequestType() RequestType {
	if w.Details == nil {
		return ""
	}
	return w.Details.RequestType()
}

// Requester returns the authoritative name and email for the wire.
// ok is false while usingAgent is unset.
func (w *Wire) Requester() (name, email string, ok bool) {
	switch w.UsingAgent {
	case UsingAgentYes:
		return w.Agent.FullName, w.Agent.Email, true
	case UsingAgentNo:
		return w.Customer.FullName, w.Customer.Email, true
	}
	return "", "", false
}

// Budget returns the budget range for variants that carry one.
func (w *Wire) Budget() (BudgetRange, bool) {
	if w.Details == nil {
		return BudgetRange{}, false
	}
	var bv budgetVisitor
	_ = w.Details.Accept(&bv)
	return bv.budget, bv.ok
}

// BudgetRange is an integer, currency-agnostic range. Incomplete is set when a
// stored document lacks either bound; the missing one reads as zero.
type BudgetRange struct {
	Min        int64
	Max        int64
	Incomplete bool
}

// IsEmpty reports the "no budget data" case: both bounds zero.
func (b BudgetRange) IsEmpty() bool { return b.Min == 0 && b.Max == 0 }

// Known reports whether both bounds were recorded.
func (b BudgetRange) Known() bool { return !b.Incomplete }

// PropertyGroup names the populated optional-field group of a Rent or Buy wire.
type PropertyGroup string

const (
	GroupBareLand    PropertyGroup = "bare_land"
	GroupResidential PropertyGroup = "residential"
	GroupCommercial  PropertyGroup = "commercial"
)

// PropertySpec carries the Rent/Buy property description. Exactly one of the
// group pointers is set, selected by Group().
type PropertySpec struct {
	PropertyType PropertyType
	UseCase      UseCase
	BareLand     *BareLandFields
	Residential  *ResidentialFields
	Commercial   *CommercialFields
}

// Group selects the field group: Bare Land first, then the use case.
func (p PropertySpec) Group() PropertyGroup {
	if p.PropertyType == PropertyBareLand {
		return GroupBareLand
	}
	if p.UseCase == UseCaseCommercial {
		return GroupCommercial
	}
	return GroupResidential
}

// NewBareLandProperty builds a bare-land spec. Bare land has no residential or commercial group.
func NewBareLandProperty(useCase UseCase, fields BareLandFields) PropertySpec {
	return PropertySpec{PropertyType: PropertyBareLand, UseCase: useCase, BareLand: &fields}
}

// NewResidentialProperty builds a residential spec for a built property type.
func NewResidentialProperty(propertyType PropertyType, fields ResidentialFields) PropertySpec {
	return PropertySpec{PropertyType: propertyType, UseCase: UseCaseResidential, Residential: &fields}
}

// NewCommercialProperty builds a commercial spec for a built property type.
func NewCommercialProperty(propertyType PropertyType, fields CommercialFields) PropertySpec {
	return PropertySpec{PropertyType: propertyType, UseCase: UseCaseCommercial, Commercial: &fields}
}

type BareLandFields struct {
	LandSize LandSizeUnit
	Units    int
}

type ResidentialFields struct {
	RoomsNo           int
	ToiletBaths       int
	BuildingStructure BuildingStructure
}

type CommercialFields struct {
	CommercialUseCase      string
	CommercialPropertyType string
	FloorSpace             float64 // sqm
}

// Details is the variant-specific part of a Wire. The set of implementations is
// closed; use Accept with a DetailsVisitor to handle every variant.
type Details interface {
	RequestType() RequestType
	Accept(v DetailsVisitor) error
	Validate() error
	isDetails()
}

// DetailsVisitor must handle every variant, so adding one breaks every visitor at compile time.
type DetailsVisitor interface {
	VisitRent(d *RentDetails) error
	VisitBuy(d *BuyDetails) error
	VisitShortLet(d *ShortLetDetails) error
	VisitJointVenture(d *JointVentureDetails) error
}

type RentDetails struct {
	Budget         BudgetRange
	PaymentOptions PaymentOption
	Property       PropertySpec
	RentDuration   RentDuration
}

func (d *RentDetails) RequestType() RequestType { return RequestTypeRent }
func (d *RentDetails) Accept(v DetailsVisitor) error { return v.VisitRent(d) }
func (d *RentDetails) isDetails() {}

type BuyDetails struct {
	Budget         BudgetRange
	PaymentOptions PaymentOption
	Property       PropertySpec
}

func (d *BuyDetails) RequestType() RequestType { return RequestTypeBuy }
func (d *BuyDetails) Accept(v DetailsVisitor) error { return v.VisitBuy(d) }
func (d *BuyDetails) isDetails() {}

// ShortLetDetails always pays daily; Budget is per day.
type ShortLetDetails struct {
	Budget       BudgetRange
	CheckInDate  time.Time
	CheckOutDate time.Time
	UseCase      ShortLetUseCase
	Amenities    []string
	Services     []string
	Units        int
	RoomsNo      int
	ToiletBaths  int
}

func (d *ShortLetDetails) RequestType() RequestType { return RequestTypeShortLet }
func (d *ShortLetDetails) Accept(v DetailsVisitor) error { return v.VisitShortLet(d) }
func (d *ShortLetDetails) isDetails() {}

// PaymentOptions is fixed for short lets.
func (d *ShortLetDetails) PaymentOptions() PaymentOption { return PaymentDaily }

// JointVentureDetails carries no budget.
type JointVentureDetails struct {
	DevelopmentType    JVDevelopmentType
	LandSizeSqm        float64
	PartyType          JVPartyType
	PartnershipType    string
	CommercialUseCase  string
	ResidentialUseCase string
}

func (d *JointVentureDetails) RequestType() RequestType { return RequestTypeJointVenture }
func (d *JointVentureDetails) Accept(v DetailsVisitor) error { return v.VisitJointVenture(d) }
func (d *JointVentureDetails) isDetails() {}

type budgetVisitor struct {
	budget BudgetRange
	ok     bool
}

func (b *budgetVisitor) VisitRent(d *RentDetails) error {
	b.budget, b.ok = d.Budget, true
	return nil
}

func (b *budgetVisitor) VisitBuy(d *BuyDetails) error {
	b.budget, b.ok = d.Budget, true
	return nil
}

func (b *budgetVisitor) VisitShortLet(d *ShortLetDetails) error {
	b.budget, b.ok = d.Budget, true
	return nil
}

func (b *budgetVisitor) VisitJointVenture(*JointVentureDetails) error {
	b.ok = false
	return nil
}
