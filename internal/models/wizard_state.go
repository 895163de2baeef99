package models

// WizardState is the persisted position of a wire in the submission wizard.
// Cancelled is never persisted: cancelling deletes the document.
type WizardState string

const (
	StateUnstarted                   WizardState = "Unstarted"
	StateAgentOrCustomerChosen       WizardState = "AgentOrCustomerChosen"
	StateContactInfoCollected        WizardState = "ContactInfoCollected"
	StateTypeSpecificFieldsCollected WizardState = "TypeSpecificFieldsCollected"
	StateFormCompleted               WizardState = "FormCompleted"
	StateSubmitted                   WizardState = "Submitted"
	StateCancelled                   WizardState = "Cancelled"
)

func (s WizardState) Valid() bool {
	switch s {
	case StateUnstarted, StateAgentOrCustomerChosen, StateContactInfoCollected,
		StateTypeSpecificFieldsCollected, StateFormCompleted, StateSubmitted, StateCancelled:
		return true
	}
	return false
}

// InferWizardState derives a state for documents written without one.
func InferWizardState(w *Wire) WizardState {
	switch {
	case w.Submitted || w.Published:
		return StateSubmitted
	case w.FormCompleted:
		return StateFormCompleted
	case w.Details != nil:
		return StateTypeSpecificFieldsCollected
	case w.Customer.Email != "" || w.Agent.Email != "":
		return StateContactInfoCollected
	case w.UsingAgent.Valid():
		return StateAgentOrCustomerChosen
	}
	return StateUnstarted
}
