package handlers_test

import (
	"context"

	"corplandlords/wireboard/internal/models"
	"corplandlords/wireboard/internal/services"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Mocks ---

// MockWireService
type MockWireService struct {
	mock.Mock
}

func (m *MockWireService) CreateWire(ctx context.Context, wire *models.Wire) (primitive.ObjectID, error) {
	args := m.Called(ctx, wire)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockWireService) FindWireByID(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wire), args.Error(1)
}

func (m *MockWireService) FindWireFresh(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wire), args.Error(1)
}

func (m *MockWireService) UpdateWire(ctx context.Context, id primitive.ObjectID, updates services.WireUpdate) error {
	return m.Called(ctx, id, updates).Error(0)
}

func (m *MockWireService) SaveWireDetails(ctx context.Context, id primitive.ObjectID, details models.Details, base services.WireUpdate) error {
	return m.Called(ctx, id, details, base).Error(0)
}

func (m *MockWireService) DeleteWire(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWireService) QueryPublished(ctx context.Context, q services.PublishedQuery) ([]*models.Wire, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wire), args.Error(1)
}

func (m *MockWireService) Subscribe(ctx context.Context, q services.PublishedQuery, onData func([]*models.Wire), onError func(error)) *services.Subscription {
	return m.Called(ctx, q, onData, onError).Get(0).(*services.Subscription)
}

func (m *MockWireService) SubscribeWire(ctx context.Context, id primitive.ObjectID, onData func(*models.Wire), onError func(error)) *services.Subscription {
	return m.Called(ctx, id, onData, onError).Get(0).(*services.Subscription)
}

func (m *MockWireService) SubmitWire(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wire), args.Error(1)
}

func (m *MockWireService) PublishWire(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWireService) AddLike(ctx context.Context, id primitive.ObjectID, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockWireService) RemoveLike(ctx context.Context, id primitive.ObjectID, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockWireService) SetBudgetFeedback(ctx context.Context, id primitive.ObjectID, userID string, feedback services.BudgetFeedback) error {
	return m.Called(ctx, id, userID, feedback).Error(0)
}

func (m *MockWireService) AddResponse(ctx context.Context, id primitive.ObjectID, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

// MockWizardService
type MockWizardService struct {
	mock.Mock
}

func (m *MockWizardService) wire(args mock.Arguments) (*models.Wire, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wire), args.Error(1)
}

func (m *MockWizardService) Start(ctx context.Context, usingAgent models.UsingAgent, contact *services.ContactInput) (*models.Wire, error) {
	return m.wire(m.Called(ctx, usingAgent, contact))
}

func (m *MockWizardService) Get(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	return m.wire(m.Called(ctx, id))
}

func (m *MockWizardService) SaveContact(ctx context.Context, id primitive.ObjectID, contact services.ContactInput) (*models.Wire, error) {
	return m.wire(m.Called(ctx, id, contact))
}

func (m *MockWizardService) SaveDetails(ctx context.Context, id primitive.ObjectID, input services.DetailsInput) (*models.Wire, error) {
	return m.wire(m.Called(ctx, id, input))
}

func (m *MockWizardService) Complete(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	return m.wire(m.Called(ctx, id))
}

func (m *MockWizardService) Submit(ctx context.Context, id primitive.ObjectID) (*services.SubmissionReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubmissionReceipt), args.Error(1)
}

func (m *MockWizardService) Edit(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	return m.wire(m.Called(ctx, id))
}

func (m *MockWizardService) Cancel(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}
