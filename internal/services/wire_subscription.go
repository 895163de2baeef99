package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"corplandlords/wireboard/internal/models"
	"github.com/google/uuid"
)

const maxSubscriptionRetryDelay = 30 * time.Second

var errStreamClosed = errors.New("change stream closed")

// changeStream is the part of *mongo.ChangeStream the subscription loop needs.
type changeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

type (
	watchFunc func(ctx context.Context) (changeStream, error)
	fetchFunc func(ctx context.Context) ([]*models.Wire, error)
)

// Subscription is a live query handle. Every upstream change re-runs the query and
// delivers the full result set. Callers must call Unsubscribe when the view goes away.
// A zero Subscription is inert.
type Subscription struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops the subscription and waits for its goroutine to exit. It is safe
// to call more than once and from any goroutine except the callbacks themselves.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		<-s.done
	})
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done is closed once the subscription has stopped delivering. For a zero
// Subscription it is already closed.
func (s *Subscription) Done() <-chan struct{} {
	if s.done == nil {
		return closedDone
	}
	return s.done
}

type subscriptionLoop struct {
	id         string
	watch      watchFunc
	fetch      fetchFunc
	onData     func([]*models.Wire)
	onError    func(error)
	retryDelay time.Duration
	logger     *slog.Logger
}

// startSubscription launches the loop bound to ctx.
func startSubscription(ctx context.Context, loop *subscriptionLoop) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	loop.id = uuid.NewString()
	if loop.retryDelay <= 0 {
		loop.retryDelay = time.Second
	}
	if loop.logger == nil {
		loop.logger = slog.Default()
	}
	loop.logger = loop.logger.With("subscription_id", loop.id)

	sub := &Subscription{ID: loop.id, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		loop.run(ctx)
	}()
	return sub
}

func (l *subscriptionLoop) run(ctx context.Context) {
	l.logger.Debug("subscription opened")
	defer l.logger.Debug("subscription closed")

	delay := l.retryDelay
	for {
		stream, err := l.watch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.deliverError(&PersistenceError{Op: "subscribe", Err: err, Retryable: true})
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		// The stream is open before the snapshot, so no change between the two is lost.
		l.refresh(ctx)
		delay = l.retryDelay
		for stream.Next(ctx) {
			l.refresh(ctx)
		}
		streamErr := stream.Err()
		_ = stream.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		if streamErr == nil {
			streamErr = errStreamClosed
		}
		l.deliverError(&PersistenceError{Op: "subscribe", Err: streamErr, Retryable: true})
		if !sleepCtx(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func (l *subscriptionLoop) refresh(ctx context.Context) {
	wires, err := l.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.deliverError(persistenceError("subscribe: fetch", err))
		return
	}
	l.deliverData(wires)
}

// deliverData and deliverError keep a panicking callback from ending the loop;
// the caller keeps its last good view.
func (l *subscriptionLoop) deliverData(wires []*models.Wire) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("subscription data callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	l.onData(wires)
}

func (l *subscriptionLoop) deliverError(err error) {
	l.logger.Warn("subscription error", "error", err)
	if l.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("subscription error callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	l.onError(err)
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxSubscriptionRetryDelay {
		return maxSubscriptionRetryDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
