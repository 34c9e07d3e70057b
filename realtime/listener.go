package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

// RedialDelay is the pause before reconnecting a failed source.
var RedialDelay = 2 * time.Second

type subscription struct {
	filter Filter
	ch     chan Change
}

// Listener consumes notifications and dispatches them to subscribers.
type Listener struct {
	dial Dialer

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
}

func NewListener(dial Dialer) *Listener {
	return &Listener{dial: dial, subs: make(map[uint64]*subscription)}
}

// Run consumes notifications until ctx is cancelled, redialing the source
// whenever it fails.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Error().Err(err).Dur("retry_in", RedialDelay).Msg("realtime listener disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(RedialDelay):
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	source, err := l.dial(ctx)
	if err != nil {
		return err
	}
	defer source.Close(context.WithoutCancel(ctx))
	log.Info().Msg("realtime listener connected")

	for {
		payload, err := source.Next(ctx)
		if err != nil {
			return err
		}
		change, err := ParseChange(payload)
		if err != nil {
			log.Warn().Err(err).Str("payload", payload).Msg("dropping notification")
			continue
		}
		l.Dispatch(change)
	}
}

// Dispatch hands change to every matching subscriber without blocking; a
// subscriber whose buffer is full misses the change.
func (l *Listener) Dispatch(change Change) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, sub := range l.subs {
		if !sub.filter.Match(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
}

// Subscribe returns a channel of matching changes and a func that
// unsubscribes and closes it.
func (l *Listener) Subscribe(filter Filter) (<-chan Change, func()) {
	return l.subscribe(filter, subscriberBuffer)
}

func (l *Listener) subscribe(filter Filter, buffer int) (chan Change, func()) {
	sub := &subscription{filter: filter, ch: make(chan Change, buffer)}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = sub
	l.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Watch re-runs refetch for every matching change. Changes that arrive while
// refetch runs collapse into a single further run. Watching ends when ctx is
// done or stop is called.
func (l *Listener) Watch(ctx context.Context, filter Filter, refetch func(ctx context.Context) error) (stop func()) {
	ch, unsubscribe := l.subscribe(filter, 1)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if err := refetch(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Str("table", filter.Table).Msg("realtime refetch failed")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// SubscriberCount is the number of live subscriptions.
func (l *Listener) SubscriberCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}
