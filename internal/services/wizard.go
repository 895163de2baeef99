package services

import "corplandlords/wireboard/internal/models"

// WizardEvent is a user action in the submission wizard.
type WizardEvent string

const (
	EventChooseBranch WizardEvent = "choose_branch"
	EventSaveContact  WizardEvent = "save_contact"
	EventSaveDetails  WizardEvent = "save_details"
	EventComplete     WizardEvent = "complete"
	EventSubmit       WizardEvent = "submit"
	EventEdit         WizardEvent = "edit"
	EventCancel       WizardEvent = "cancel"
)

var wizardTransitions = map[models.WizardState]map[WizardEvent]models.WizardState{
	models.StateUnstarted: {
		EventChooseBranch: models.StateAgentOrCustomerChosen,
		EventCancel:       models.StateCancelled,
	},
	models.StateAgentOrCustomerChosen: {
		EventChooseBranch: models.StateAgentOrCustomerChosen,
		EventSaveContact:  models.StateContactInfoCollected,
		EventCancel:       models.StateCancelled,
	},
	models.StateContactInfoCollected: {
		EventSaveContact: models.StateContactInfoCollected,
		EventSaveDetails: models.StateTypeSpecificFieldsCollected,
		EventCancel:      models.StateCancelled,
	},
	models.StateTypeSpecificFieldsCollected: {
		EventSaveContact: models.StateTypeSpecificFieldsCollected,
		EventSaveDetails: models.StateTypeSpecificFieldsCollected,
		EventComplete:    models.StateFormCompleted,
		EventCancel:      models.StateCancelled,
	},
	models.StateFormCompleted: {
		EventSubmit: models.StateSubmitted,
		EventEdit:   models.StateContactInfoCollected,
		EventCancel: models.StateCancelled,
	},
	// Edit out of Submitted is further limited to unpublished wires by the caller.
	models.StateSubmitted: {
		EventEdit: models.StateContactInfoCollected,
	},
}

// NextWizardState returns the state reached by applying ev in from.
func NextWizardState(from models.WizardState, ev WizardEvent) (models.WizardState, error) {
	if to, ok := wizardTransitions[from][ev]; ok {
		return to, nil
	}
	return from, invalidTransition(from, eventTarget(ev))
}

func eventTarget(ev WizardEvent) models.WizardState {
	switch ev {
	case EventChooseBranch:
		return models.StateAgentOrCustomerChosen
	case EventSaveContact, EventEdit:
		return models.StateContactInfoCollected
	case EventSaveDetails:
		return models.StateTypeSpecificFieldsCollected
	case EventComplete:
		return models.StateFormCompleted
	case EventSubmit:
		return models.StateSubmitted
	}
	return models.StateCancelled
}
