package services

import (
	"context"

	"corplandlords/wireboard/internal/models"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockWireService is a testify mock of IWireService.
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

func (m *MockWireService) UpdateWire(ctx context.Context, id primitive.ObjectID, updates WireUpdate) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockWireService) SaveWireDetails(ctx context.Context, id primitive.ObjectID, details models.Details, base WireUpdate) error {
	args := m.Called(ctx, id, details, base)
	return args.Error(0)
}

func (m *MockWireService) DeleteWire(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWireService) QueryPublished(ctx context.Context, q PublishedQuery) ([]*models.Wire, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wire), args.Error(1)
}

func (m *MockWireService) Subscribe(ctx context.Context, q PublishedQuery, onData func([]*models.Wire), onError func(error)) *Subscription {
	args := m.Called(ctx, q, onData, onError)
	return args.Get(0).(*Subscription)
}

func (m *MockWireService) SubscribeWire(ctx context.Context, id primitive.ObjectID, onData func(*models.Wire), onError func(error)) *Subscription {
	args := m.Called(ctx, id, onData, onError)
	return args.Get(0).(*Subscription)
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

func (m *MockWireService) SetBudgetFeedback(ctx context.Context, id primitive.ObjectID, userID string, feedback BudgetFeedback) error {
	return m.Called(ctx, id, userID, feedback).Error(0)
}

func (m *MockWireService) AddResponse(ctx context.Context, id primitive.ObjectID, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

type MockSubmissionNotifier struct {
	mock.Mock
}

func (m *MockSubmissionNotifier) NotifySubmitted(ctx context.Context, wire *models.Wire) error {
	return m.Called(ctx, wire).Error(0)
}
