package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corplandlords/wireboard/internal/cache"
	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/db"
	"corplandlords/wireboard/internal/models"
	"corplandlords/wireboard/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WireUpdate maps document field names to new values. A nil value removes the field.
type WireUpdate map[string]interface{}

// BudgetFeedback is a user's signal on a wire's stated budget.
type BudgetFeedback string

const (
	BudgetFeedbackGood BudgetFeedback = "good"
	BudgetFeedbackLow  BudgetFeedback = "low"
	BudgetFeedbackNone BudgetFeedback = "none"
)

// IWireService defines the wire repository operations.
type IWireService interface {
	CreateWire(ctx context.Context, wire *models.Wire) (primitive.ObjectID, error)
	FindWireByID(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	FindWireFresh(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	UpdateWire(ctx context.Context, id primitive.ObjectID, updates WireUpdate) error
	SaveWireDetails(ctx context.Context, id primitive.ObjectID, details models.Details, base WireUpdate) error
	DeleteWire(ctx context.Context, id primitive.ObjectID) error
	QueryPublished(ctx context.Context, q PublishedQuery) ([]*models.Wire, error)
	Subscribe(ctx context.Context, q PublishedQuery, onData func([]*models.Wire), onError func(error)) *Subscription
	SubscribeWire(ctx context.Context, id primitive.ObjectID, onData func(*models.Wire), onError func(error)) *Subscription
	SubmitWire(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
	PublishWire(ctx context.Context, id primitive.ObjectID) error
	AddLike(ctx context.Context, id primitive.ObjectID, userID string) error
	RemoveLike(ctx context.Context, id primitive.ObjectID, userID string) error
	SetBudgetFeedback(ctx context.Context, id primitive.ObjectID, userID string, feedback BudgetFeedback) error
	AddResponse(ctx context.Context, id primitive.ObjectID, userID string) error
}

// wireService implements IWireService.
type wireService struct {
	db    *mongo.Database
	cfg   *config.Config
	cache cache.WireCache
	watch func(ctx context.Context, pipeline mongo.Pipeline) (changeStream, error)
}

// NewWireService creates a new WireService. wireCache may be nil.
func NewWireService(database *mongo.Database, cfg *config.Config, wireCache cache.WireCache) IWireService {
	s := &wireService{db: database, cfg: cfg, cache: wireCache}
	s.watch = func(ctx context.Context, pipeline mongo.Pipeline) (changeStream, error) {
		return s.collection().Watch(ctx, pipeline)
	}
	return s
}

func (s *wireService) collection() *mongo.Collection {
	return s.db.Collection(s.cfg.CollectionName(config.WiresCollection))
}

func (s *wireService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		slog.Warn("failed to invalidate cached wire", "wire_id", id.Hex(), "error", err)
	}
}

// CreateWire stores a new wire with a server-generated id and creation time.
func (s *wireService) CreateWire(ctx context.Context, wire *models.Wire) (primitive.ObjectID, error) {
	if err := wire.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	now := time.Now().UTC()
	doc := *wire
	doc.ID = primitive.NewObjectID()
	doc.Time = now
	doc.UpdatedAt = now
	if doc.WizardState == "" {
		doc.WizardState = models.InferWizardState(&doc)
	}

	if _, err := s.collection().InsertOne(ctx, &doc); err != nil {
		return primitive.NilObjectID, persistenceError("create wire", err)
	}
	slog.Debug("wire created", "wire_id", doc.ID.Hex(), "request_type", doc.RequestType())
	return doc.ID, nil
}

// FindWireByID returns (nil, nil) when the wire does not exist.
func (s *wireService) FindWireByID(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.Warn("wire cache read failed", "wire_id", id.Hex(), "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	w, err := s.findFresh(ctx, id)
	if err != nil || w == nil {
		return w, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, w); err != nil {
			slog.Warn("wire cache write failed", "wire_id", id.Hex(), "error", err)
		}
	}
	return w, nil
}

// FindWireFresh reads the wire from the store, bypassing the cache. Callers that
// decide a state transition on the result use it.
func (s *wireService) FindWireFresh(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	return s.findFresh(ctx, id)
}

func (s *wireService) findFresh(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	var w models.Wire
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, persistenceError(fmt.Sprintf("find wire %s", id.Hex()), err)
	}
	return &w, nil
}

// currentRequestType reads only the discriminator. ok is false when the wire is absent.
func (s *wireService) currentRequestType(ctx context.Context, id primitive.ObjectID) (models.RequestType, bool, error) {
	var doc struct {
		RequestType string `bson:"requestType"`
	}
	opts := options.FindOne().SetProjection(bson.M{"requestType": 1})
	err := s.collection().FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, persistenceError("read request type", err)
	}
	return models.RequestType(doc.RequestType), true, nil
}

func splitUpdate(updates WireUpdate) (set, unset bson.M) {
	set, unset = bson.M{}, bson.M{}
	for k, v := range updates {
		if v == nil {
			unset[k] = ""
		} else {
			set[k] = v
		}
	}
	return set, unset
}

func updateDocument(set, unset bson.M) bson.M {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// UpdateWire merges fields into an existing wire. requestType and _id cannot be
// changed. Variant fields must belong to the wire's request type and selected
// property group; they are merged into the stored details, validated and written
// through SaveWireDetails so the group and budget invariants hold.
func (s *wireService) UpdateWire(ctx context.Context, id primitive.ObjectID, updates WireUpdate) error {
	if len(updates) == 0 {
		return models.NewValidationError("updates", "no fields provided")
	}

	base, variant := WireUpdate{}, WireUpdate{}
	for k, v := range updates {
		switch {
		case k == "_id" || k == "requestType":
			return fmt.Errorf("%w: %s", ErrImmutableField, k)
		case models.IsBaseField(k):
			base[k] = v
		default:
			variant[k] = v
		}
	}
	if len(variant) > 0 {
		return s.updateVariant(ctx, id, variant, base)
	}

	set, unset := splitUpdate(base)
	set["updatedAt"] = time.Now().UTC()

	res, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, updateDocument(set, unset))
	if err != nil {
		return persistenceError(fmt.Sprintf("update wire %s", id.Hex()), err)
	}
	s.invalidate(ctx, id)
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *wireService) updateVariant(ctx context.Context, id primitive.ObjectID, variant, base WireUpdate) error {
	current, err := s.findFresh(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}
	rt := current.RequestType()
	var v ValidationError
	for k := range variant {
		if rt == "" || !models.IsVariantField(rt, k) {
			v.Add(k, fmt.Sprintf("not a field of %q wires", string(rt)))
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	details, err := models.MergeDetails(current, variant)
	if err != nil {
		return err
	}
	return s.SaveWireDetails(ctx, id, details, base)
}

// SaveWireDetails records the variant of a wire together with base fields.
// The request type is set on first save; saving a different type fails with
// ErrImmutableField. Fields of every other group are removed.
func (s *wireService) SaveWireDetails(ctx context.Context, id primitive.ObjectID, details models.Details, base WireUpdate) error {
	if details == nil {
		return models.NewValidationError("requestType", "required")
	}
	if err := details.Validate(); err != nil {
		return err
	}
	variant, err := models.DetailsFields(details)
	if err != nil {
		return fmt.Errorf("failed to encode wire details: %w", err)
	}

	set, unset := splitUpdate(base)
	for k := range base {
		if !models.IsBaseField(k) {
			return fmt.Errorf("%w: %s", ErrImmutableField, k)
		}
	}
	for k, v := range variant {
		set[k] = v
	}
	for _, f := range models.AllVariantFields() {
		if _, ok := variant[f]; !ok {
			unset[f] = ""
		}
	}
	rt := string(details.RequestType())
	set["requestType"] = rt
	set["updatedAt"] = time.Now().UTC()

	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"requestType": bson.M{"$exists": false}},
			bson.M{"requestType": rt},
		},
	}
	res, err := s.collection().UpdateOne(ctx, filter, updateDocument(set, unset))
	if err != nil {
		return persistenceError(fmt.Sprintf("save wire details %s", id.Hex()), err)
	}
	s.invalidate(ctx, id)
	if res.MatchedCount == 0 {
		existing, ok, err := s.currentRequestType(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return fmt.Errorf("%w: requestType is %q", ErrImmutableField, string(existing))
	}
	return nil
}

// DeleteWire removes a wire. Deleting an absent wire is not an error.
func (s *wireService) DeleteWire(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.collection().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return persistenceError(fmt.Sprintf("delete wire %s", id.Hex()), err)
	}
	s.invalidate(ctx, id)
	return nil
}

// QueryPublished returns every published wire matching q, newest first.
// Search and budget refinement are left to RefineListing.
func (s *wireService) QueryPublished(ctx context.Context, q PublishedQuery) ([]*models.Wire, error) {
	cur, err := s.collection().Find(ctx, q.filter(), q.findOptions())
	if err != nil {
		return nil, persistenceError("query published wires", err)
	}
	defer cur.Close(ctx)

	wires := make([]*models.Wire, 0)
	for cur.Next(ctx) {
		var w models.Wire
		if err := cur.Decode(&w); err != nil {
			slog.Warn("skipping undecodable wire", "error", err)
			continue
		}
		wires = append(wires, &w)
	}
	if err := cur.Err(); err != nil {
		return nil, persistenceError("query published wires", err)
	}
	return wires, nil
}

// Subscribe delivers the full result of QueryPublished(q) now and after every change
// to the wire collection.
func (s *wireService) Subscribe(ctx context.Context, q PublishedQuery, onData func([]*models.Wire), onError func(error)) *Subscription {
	return startSubscription(ctx, &subscriptionLoop{
		watch: func(ctx context.Context) (changeStream, error) {
			return s.watch(ctx, mongo.Pipeline{})
		},
		fetch: func(ctx context.Context) ([]*models.Wire, error) {
			return s.QueryPublished(ctx, q)
		},
		onData:     onData,
		onError:    onError,
		retryDelay: s.cfg.SubscriptionRetryDelay,
		logger:     slog.Default().With("query", "published", "request_type", string(q.RequestType)),
	})
}

// SubscribeWire follows a single wire. onData receives nil once the wire is gone.
func (s *wireService) SubscribeWire(ctx context.Context, id primitive.ObjectID, onData func(*models.Wire), onError func(error)) *Subscription {
	match := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": id}}}}
	return startSubscription(ctx, &subscriptionLoop{
		watch: func(ctx context.Context) (changeStream, error) {
			return s.watch(ctx, match)
		},
		fetch: func(ctx context.Context) ([]*models.Wire, error) {
			w, err := s.findFresh(ctx, id)
			if err != nil || w == nil {
				return nil, err
			}
			return []*models.Wire{w}, nil
		},
		onData: func(wires []*models.Wire) {
			if len(wires) == 0 {
				onData(nil)
				return
			}
			onData(wires[0])
		},
		onError:    onError,
		retryDelay: s.cfg.SubscriptionRetryDelay,
		logger:     slog.Default().With("wire_id", id.Hex()),
	})
}

// SubmitWire moves a completed wire to submitted: it stamps the server time and
// assigns a request identifier, regenerating it on collision. A wire that already
// carries an identifier (resubmitted after an edit) keeps it.
func (s *wireService) SubmitWire(ctx context.Context, id primitive.ObjectID) (*models.Wire, error) {
	current, err := s.findFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if !current.FormCompleted || current.Submitted {
		return nil, invalidTransition(current.WizardState, models.StateSubmitted)
	}

	coll := s.collection()
	var submitted models.Wire
	operation := func() error {
		requestID := current.RequestID
		if requestID == "" {
			requestID = utils.NewRequestID()
		}
		now := time.Now().UTC()
		filter := bson.M{"_id": id, "formCompleted": true, "submitted": false}
		update := bson.M{"$set": bson.M{
			"submitted":   true,
			"published":   false,
			"time":        now,
			"updatedAt":   now,
			"requestID":   requestID,
			"wizardState": string(models.StateSubmitted),
		}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		return coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&submitted)
	}

	err = db.WithRetries(operation, s.cfg.RequestIDMaxRetries, db.IsMongoDuplicateKeyError)
	s.invalidate(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, invalidTransition(current.WizardState, models.StateSubmitted)
		}
		return nil, persistenceError(fmt.Sprintf("submit wire %s", id.Hex()), err)
	}
	slog.Info("wire submitted", "wire_id", id.Hex(), "request_id", submitted.RequestID)
	return &submitted, nil
}

// PublishWire makes a submitted wire publicly listed.
func (s *wireService) PublishWire(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "submitted": true},
		bson.M{"$set": bson.M{"published": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return persistenceError(fmt.Sprintf("publish wire %s", id.Hex()), err)
	}
	s.invalidate(ctx, id)
	if res.MatchedCount == 0 {
		w, err := s.findFresh(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrNotFound
		}
		return fmt.Errorf("%w: wire %s is not submitted", ErrInvalidTransition, id.Hex())
	}
	slog.Info("wire published", "wire_id", id.Hex())
	return nil
}

// react applies a set mutation to a published wire on behalf of userID.
func (s *wireService) react(ctx context.Context, op string, id primitive.ObjectID, userID string, update bson.M) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := s.collection().UpdateOne(ctx, bson.M{"_id": id, "published": true}, update)
	if err != nil {
		return persistenceError(fmt.Sprintf("%s %s", op, id.Hex()), err)
	}
	s.invalidate(ctx, id)
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *wireService) AddLike(ctx context.Context, id primitive.ObjectID, userID string) error {
	return s.react(ctx, "like wire", id, userID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (s *wireService) RemoveLike(ctx context.Context, id primitive.ObjectID, userID string) error {
	return s.react(ctx, "unlike wire", id, userID, bson.M{"$pull": bson.M{"likes": userID}})
}

// SetBudgetFeedback records good or low feedback; the two are mutually exclusive
// per user. BudgetFeedbackNone clears both.
func (s *wireService) SetBudgetFeedback(ctx context.Context, id primitive.ObjectID, userID string, feedback BudgetFeedback) error {
	var update bson.M
	switch feedback {
	case BudgetFeedbackGood:
		update = bson.M{"$addToSet": bson.M{"goodBudget": userID}, "$pull": bson.M{"lowBudget": userID}}
	case BudgetFeedbackLow:
		update = bson.M{"$addToSet": bson.M{"lowBudget": userID}, "$pull": bson.M{"goodBudget": userID}}
	case BudgetFeedbackNone:
		update = bson.M{"$pull": bson.M{"goodBudget": userID, "lowBudget": userID}}
	default:
		return models.NewValidationError("feedback", "must be good, low or none")
	}
	return s.react(ctx, "budget feedback", id, userID, update)
}

func (s *wireService) AddResponse(ctx context.Context, id primitive.ObjectID, userID string) error {
	return s.react(ctx, "respond to wire", id, userID, bson.M{"$addToSet": bson.M{"responses": userID}})
}
