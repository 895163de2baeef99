package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// wireDocument is the flat stored shape of a Wire. Variant fields are pointers or
// omitempty so that only the active group is ever written.
type wireDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RequestType   string             `bson:"requestType,omitempty" json:"requestType,omitempty"`
	Locations     []string           `bson:"locations" json:"locations"`
	Time          time.Time          `bson:"time" json:"time"`
	UpdatedAt     time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Submitted     bool               `bson:"submitted" json:"submitted"`
	Published     bool               `bson:"published" json:"published"`
	FormCompleted bool               `bson:"formCompleted" json:"formCompleted"`
	UsingAgent    string             `bson:"usingAgent,omitempty" json:"usingAgent,omitempty"`
	Others        string             `bson:"others" json:"others"`
	Likes         []string           `bson:"likes" json:"likes"`
	GoodBudget    []string           `bson:"goodBudget" json:"goodBudget"`
	LowBudget     []string           `bson:"lowBudget" json:"lowBudget"`
	Responses     []string           `bson:"responses" json:"responses"`
	RequestID     string             `bson:"requestID,omitempty" json:"requestID,omitempty"`
	BuildingType  string             `bson:"buildingType" json:"buildingType"`
	WizardState   string             `bson:"wizardState,omitempty" json:"wizardState,omitempty"`

	CustomerFullName string `bson:"customerFullName" json:"customerFullName"`
	CustomerEmail    string `bson:"customerEmail" json:"customerEmail"`
	CustomerPhone    string `bson:"customerPhone" json:"customerPhone"`
	AgentFullName    string `bson:"agentFullName" json:"agentFullName"`
	AgentEmail       string `bson:"agentEmail" json:"agentEmail"`
	AgentPhone       string `bson:"agentPhone" json:"agentPhone"`
	AgentCompany     string `bson:"agentCompany" json:"agentCompany"`

	// Rent, Buy, Short Let
	MinBudget      *int64 `bson:"minBudget,omitempty" json:"minBudget,omitempty"`
	MaxBudget      *int64 `bson:"maxBudget,omitempty" json:"maxBudget,omitempty"`
	PaymentOptions string `bson:"paymentOptions,omitempty" json:"paymentOptions,omitempty"`

	// Rent, Buy
	PropertyType string `bson:"propertyType,omitempty" json:"propertyType,omitempty"`
	UseCase      string `bson:"useCase,omitempty" json:"useCase,omitempty"`
	RentDuration string `bson:"rentDuration,omitempty" json:"rentDuration,omitempty"`

	LandSize string `bson:"landSize,omitempty" json:"landSize,omitempty"`
	Units    *int   `bson:"units,omitempty" json:"units,omitempty"`

	RoomsNo           *int   `bson:"roomsNo,omitempty" json:"roomsNo,omitempty"`
	ToiletBaths       *int   `bson:"toiletBaths,omitempty" json:"toiletBaths,omitempty"`
	BuildingStructure string `bson:"buildingStructure,omitempty" json:"buildingStructure,omitempty"`

	CommercialUseCase      string   `bson:"commercialUseCase,omitempty" json:"commercialUseCase,omitempty"`
	CommercialPropertyType string   `bson:"commercialPropertyType,omitempty" json:"commercialPropertyType,omitempty"`
	FloorSpace             *float64 `bson:"floorSpace,omitempty" json:"floorSpace,omitempty"`

	// Short Let
	CheckInDate     *time.Time `bson:"checkInDate,omitempty" json:"checkInDate,omitempty"`
	CheckOutDate    *time.Time `bson:"checkOutDate,omitempty" json:"checkOutDate,omitempty"`
	ShortLetUseCase string     `bson:"shortLetUseCase,omitempty" json:"shortLetUseCase,omitempty"`
	Amenities       []string   `bson:"amenities,omitempty" json:"amenities,omitempty"`
	Services        []string   `bson:"services,omitempty" json:"services,omitempty"`
	ShortLetUnits   *int       `bson:"shortLetUnits,omitempty" json:"shortLetUnits,omitempty"`

	// Joint Venture
	JVDevelopmentType    string   `bson:"jvDevelopmentType,omitempty" json:"jvDevelopmentType,omitempty"`
	JVLandSizeSqm        *float64 `bson:"jvLandSizeSqm,omitempty" json:"jvLandSizeSqm,omitempty"`
	JVPartyType          string   `bson:"jvPartyType,omitempty" json:"jvPartyType,omitempty"`
	JVPartnershipType    string   `bson:"jvPartnershipType,omitempty" json:"jvPartnershipType,omitempty"`
	JVCommercialUseCase  string   `bson:"jvCommercialUseCase,omitempty" json:"jvCommercialUseCase,omitempty"`
	JVResidentialUseCase string   `bson:"jvResidentialUseCase,omitempty" json:"jvResidentialUseCase,omitempty"`
}

var (
	baseDocumentFields = []string{
		"locations", "time", "updatedAt", "submitted", "published", "formCompleted", "usingAgent",
		"others", "likes", "goodBudget", "lowBudget", "responses", "requestID", "buildingType",
		"wizardState", "customerFullName", "customerEmail", "customerPhone", "agentFullName",
		"agentEmail", "agentPhone", "agentCompany",
	}
	propertyDocumentFields = []string{
		"minBudget", "maxBudget", "paymentOptions", "propertyType", "useCase", "landSize", "units",
		"roomsNo", "toiletBaths", "buildingStructure", "commercialUseCase", "commercialPropertyType",
		"floorSpace",
	}
	variantDocumentFields = map[RequestType][]string{
		RequestTypeBuy:  propertyDocumentFields,
		RequestTypeRent: append(append([]string{}, propertyDocumentFields...), "rentDuration"),
		RequestTypeShortLet: {
			"minBudget", "maxBudget", "paymentOptions", "checkInDate", "checkOutDate",
			"shortLetUseCase", "amenities", "services", "shortLetUnits", "roomsNo", "toiletBaths",
		},
		RequestTypeJointVenture: {
			"jvDevelopmentType", "jvLandSizeSqm", "jvPartyType", "jvPartnershipType",
			"jvCommercialUseCase", "jvResidentialUseCase",
		},
	}
)

// IsBaseField reports whether name is a shared, variant-independent document field.
func IsBaseField(name string) bool {
	return contains(baseDocumentFields, name)
}

// IsVariantField reports whether name belongs to the field group of rt.
func IsVariantField(rt RequestType, name string) bool {
	return contains(variantDocumentFields[rt], name)
}

// AllVariantFields returns every variant-specific field name across all request types.
func AllVariantFields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rt := range RequestTypes {
		for _, f := range variantDocumentFields[rt] {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intPtr(v int) *int             { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// documentWriter flattens the active variant into a wireDocument.
type documentWriter struct {
	doc *wireDocument
}

func (w documentWriter) budget(b BudgetRange, p PaymentOption) {
	w.doc.MinBudget = int64Ptr(b.Min)
	w.doc.MaxBudget = int64Ptr(b.Max)
	w.doc.PaymentOptions = string(p)
}

func (w documentWriter) property(p PropertySpec) {
	w.doc.PropertyType = string(p.PropertyType)
	w.doc.UseCase = string(p.UseCase)
	switch p.Group() {
	case GroupBareLand:
		if p.BareLand != nil {
			w.doc.LandSize = string(p.BareLand.LandSize)
			w.doc.Units = intPtr(p.BareLand.Units)
		}
	case GroupResidential:
		if p.Residential != nil {
			w.doc.RoomsNo = intPtr(p.Residential.RoomsNo)
			w.doc.ToiletBaths = intPtr(p.Residential.ToiletBaths)
			w.doc.BuildingStructure = string(p.Residential.BuildingStructure)
		}
	case GroupCommercial:
		if p.Commercial != nil {
			w.doc.CommercialUseCase = p.Commercial.CommercialUseCase
			w.doc.CommercialPropertyType = p.Commercial.CommercialPropertyType
			w.doc.FloorSpace = float64Ptr(p.Commercial.FloorSpace)
		}
	}
}

func (w documentWriter) VisitRent(d *RentDetails) error {
	w.budget(d.Budget, d.PaymentOptions)
	w.property(d.Property)
	w.doc.RentDuration = string(d.RentDuration)
	return nil
}

func (w documentWriter) VisitBuy(d *BuyDetails) error {
	w.budget(d.Budget, d.PaymentOptions)
	w.property(d.Property)
	return nil
}

func (w documentWriter) VisitShortLet(d *ShortLetDetails) error {
	w.budget(d.Budget, d.PaymentOptions())
	if !d.CheckInDate.IsZero() {
		in := d.CheckInDate
		w.doc.CheckInDate = &in
	}
	if !d.CheckOutDate.IsZero() {
		out := d.CheckOutDate
		w.doc.CheckOutDate = &out
	}
	w.doc.ShortLetUseCase = string(d.UseCase)
	w.doc.Amenities = uniqueStrings(d.Amenities)
	w.doc.Services = uniqueStrings(d.Services)
	w.doc.ShortLetUnits = intPtr(d.Units)
	w.doc.RoomsNo = intPtr(d.RoomsNo)
	w.doc.ToiletBaths = intPtr(d.ToiletBaths)
	return nil
}

func (w documentWriter) VisitJointVenture(d *JointVentureDetails) error {
	w.doc.JVDevelopmentType = string(d.DevelopmentType)
	w.doc.JVLandSizeSqm = float64Ptr(d.LandSizeSqm)
	w.doc.JVPartyType = string(d.PartyType)
	w.doc.JVPartnershipType = d.PartnershipType
	w.doc.JVCommercialUseCase = d.CommercialUseCase
	w.doc.JVResidentialUseCase = d.ResidentialUseCase
	return nil
}

// uniqueStrings trims entries and drops blanks and repeats, keeping first-seen order.
func uniqueStrings(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (w *Wire) toDocument() *wireDocument {
	doc := &wireDocument{
		ID:               w.ID,
		Locations:        orEmpty(w.Locations),
		Time:             w.Time,
		UpdatedAt:        w.UpdatedAt,
		Submitted:        w.Submitted,
		Published:        w.Published,
		FormCompleted:    w.FormCompleted,
		UsingAgent:       string(w.UsingAgent),
		Others:           w.Others,
		Likes:            orEmpty(w.Likes),
		GoodBudget:       orEmpty(w.GoodBudget),
		LowBudget:        orEmpty(w.LowBudget),
		Responses:        orEmpty(w.Responses),
		RequestID:        w.RequestID,
		BuildingType:     w.BuildingType,
		WizardState:      string(w.WizardState),
		CustomerFullName: w.Customer.FullName,
		CustomerEmail:    w.Customer.Email,
		CustomerPhone:    w.Customer.Phone,
		AgentFullName:    w.Agent.FullName,
		AgentEmail:       w.Agent.Email,
		AgentPhone:       w.Agent.Phone,
		AgentCompany:     w.Agent.Company,
	}
	if w.Details != nil {
		doc.RequestType = string(w.Details.RequestType())
		_ = w.Details.Accept(documentWriter{doc: doc})
	}
	return doc
}

func (doc *wireDocument) property() PropertySpec {
	p := PropertySpec{PropertyType: PropertyType(doc.PropertyType), UseCase: UseCase(doc.UseCase)}
	switch p.Group() {
	case GroupBareLand:
		p.BareLand = &BareLandFields{LandSize: LandSizeUnit(doc.LandSize), Units: derefInt(doc.Units)}
	case GroupResidential:
		p.Residential = &ResidentialFields{
			RoomsNo:           derefInt(doc.RoomsNo),
			ToiletBaths:       derefInt(doc.ToiletBaths),
			BuildingStructure: BuildingStructure(doc.BuildingStructure),
		}
	case GroupCommercial:
		p.Commercial = &CommercialFields{
			CommercialUseCase:      doc.CommercialUseCase,
			CommercialPropertyType: doc.CommercialPropertyType,
			FloorSpace:             derefFloat(doc.FloorSpace),
		}
	}
	return p
}

func (doc *wireDocument) budget() BudgetRange {
	return BudgetRange{
		Min:        derefInt64(doc.MinBudget),
		Max:        derefInt64(doc.MaxBudget),
		Incomplete: doc.MinBudget == nil || doc.MaxBudget == nil,
	}
}

// details reads only the active group; fields of other groups are ignored.
// An unknown or missing requestType yields nil.
func (doc *wireDocument) details() Details {
	switch RequestType(doc.RequestType) {
	case RequestTypeRent:
		return &RentDetails{
			Budget:         doc.budget(),
			PaymentOptions: PaymentOption(doc.PaymentOptions),
			Property:       doc.property(),
			RentDuration:   RentDuration(doc.RentDuration),
		}
	case RequestTypeBuy:
		return &BuyDetails{
			Budget:         doc.budget(),
			PaymentOptions: PaymentOption(doc.PaymentOptions),
			Property:       doc.property(),
		}
	case RequestTypeShortLet:
		d := &ShortLetDetails{
			Budget:      doc.budget(),
			UseCase:     ShortLetUseCase(doc.ShortLetUseCase),
			Amenities:   orEmpty(uniqueStrings(doc.Amenities)),
			Services:    orEmpty(uniqueStrings(doc.Services)),
			Units:       derefInt(doc.ShortLetUnits),
			RoomsNo:     derefInt(doc.RoomsNo),
			ToiletBaths: derefInt(doc.ToiletBaths),
		}
		if doc.CheckInDate != nil {
			d.CheckInDate = *doc.CheckInDate
		}
		if doc.CheckOutDate != nil {
			d.CheckOutDate = *doc.CheckOutDate
		}
		return d
	case RequestTypeJointVenture:
		return &JointVentureDetails{
			DevelopmentType:    JVDevelopmentType(doc.JVDevelopmentType),
			LandSizeSqm:        derefFloat(doc.JVLandSizeSqm),
			PartyType:          JVPartyType(doc.JVPartyType),
			PartnershipType:    doc.JVPartnershipType,
			CommercialUseCase:  doc.JVCommercialUseCase,
			ResidentialUseCase: doc.JVResidentialUseCase,
		}
	}
	return nil
}

func (doc *wireDocument) toWire() *Wire {
	w := &Wire{
		ID:            doc.ID,
		Locations:     orEmpty(doc.Locations),
		Time:          doc.Time,
		UpdatedAt:     doc.UpdatedAt,
		Submitted:     doc.Submitted,
		Published:     doc.Published,
		FormCompleted: doc.FormCompleted,
		UsingAgent:    UsingAgent(doc.UsingAgent),
		Others:        doc.Others,
		Likes:         orEmpty(doc.Likes),
		GoodBudget:    orEmpty(doc.GoodBudget),
		LowBudget:     orEmpty(doc.LowBudget),
		Responses:     orEmpty(doc.Responses),
		RequestID:     doc.RequestID,
		BuildingType:  doc.BuildingType,
		Customer: ContactDetails{
			FullName: doc.CustomerFullName,
			Email:    doc.CustomerEmail,
			Phone:    doc.CustomerPhone,
		},
		Agent: AgentDetails{
			FullName: doc.AgentFullName,
			Email:    doc.AgentEmail,
			Phone:    doc.AgentPhone,
			Company:  doc.AgentCompany,
		},
		Details: doc.details(),
	}
	if !w.UsingAgent.Valid() {
		w.UsingAgent = UsingAgentUnset
	}
	w.WizardState = WizardState(doc.WizardState)
	if !w.WizardState.Valid() {
		w.WizardState = InferWizardState(w)
	}
	return w
}

func (w Wire) MarshalBSON() ([]byte, error) {
	return bson.Marshal(w.toDocument())
}

func (w *Wire) UnmarshalBSON(data []byte) error {
	var doc wireDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	*w = *doc.toWire()
	return nil
}

func (w Wire) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.toDocument())
}

func (w *Wire) UnmarshalJSON(data []byte) error {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*w = *doc.toWire()
	return nil
}

// DetailsFields returns the document fields written for d, keyed by field name.
func DetailsFields(d Details) (bson.M, error) {
	doc := &wireDocument{}
	if err := d.Accept(documentWriter{doc: doc}); err != nil {
		return nil, err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var all bson.M
	if err := bson.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	out := bson.M{}
	for k, v := range all {
		if IsVariantField(d.RequestType(), k) {
			out[k] = v
		}
	}
	return out, nil
}

// MergeDetails overlays variant field updates on w's stored shape and returns the
// resulting details. A nil value clears the field. Values that do not decode into
// the field's type, and fields outside the group selected by the merged
// propertyType and useCase, are reported as validation errors.
func MergeDetails(w *Wire, updates map[string]interface{}) (Details, error) {
	current, err := bson.Marshal(w.toDocument())
	if err != nil {
		return nil, err
	}
	var merged bson.M
	if err := bson.Unmarshal(current, &merged); err != nil {
		return nil, err
	}

	var v ValidationError
	for k, val := range updates {
		if val == nil {
			delete(merged, k)
			continue
		}
		if err := decodeField(k, val); err != nil {
			v.Add(k, "invalid value")
			continue
		}
		merged[k] = val
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	raw, err := bson.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var doc wireDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	details := doc.details()
	if details == nil {
		return nil, NewValidationError("requestType", "required")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	written, err := DetailsFields(details)
	if err != nil {
		return nil, err
	}
	for k, val := range updates {
		if _, ok := written[k]; !ok && val != nil {
			v.Add(k, "not a field of the selected property group")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// decodeField checks that val decodes into the document field name.
func decodeField(name string, val interface{}) error {
	raw, err := bson.Marshal(bson.M{name: val})
	if err != nil {
		return err
	}
	var doc wireDocument
	return bson.Unmarshal(raw, &doc)
}
