package coalesce

import "sync"

// Observers tracks the subscribers of running workers, one worker per key.
type Observers struct {
	mu           sync.Mutex
	nextID       uint64
	observations map[string]*observation
}

type subscriber struct {
	id    uint64
	value any
}

// observation is the state of one running worker.
type observation struct {
	subscribers []subscriber
	teardown    func()
	started     bool // worker returned its teardown
	released    bool // last subscriber left
}

// NewObservers creates an empty observer set.
func NewObservers() *Observers {
	return &Observers{observations: make(map[string]*observation)}
}

// Len returns the number of subscribers attached to key.
func (o *Observers) Len(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	obs, ok := o.observations[key]
	if !ok {
		return 0
	}
	return len(obs.subscribers)
}

// Detach unbinds key from its running worker. Subscribers already attached
// keep receiving its emissions, while the next Observe of key starts a new
// worker. A worker that has delivered its final result detaches itself so
// late callers do not wait on it.
func (o *Observers) Detach(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observations, key)
}

// Observe attaches subscriber to key. The first subscriber of a key runs
// worker, which receives an emit function that calls a function on every
// subscriber attached at the time of the call. Later subscribers only join
// the fan-out.
//
// The returned unobserve detaches this subscriber and is idempotent. When the
// last subscriber leaves, the teardown returned by worker runs and key is
// released, so the next Observe starts a fresh worker.
func Observe[S any](o *Observers, key string, sub S, worker func(emit func(func(S))) func()) func() {
	o.mu.Lock()
	o.nextID++
	id := o.nextID

	obs, running := o.observations[key]
	if !running {
		obs = &observation{}
		o.observations[key] = obs
	}
	obs.subscribers = append(obs.subscribers, subscriber{id: id, value: sub})
	o.mu.Unlock()

	unobserve := sync.OnceFunc(func() {
		o.mu.Lock()
		for i, s := range obs.subscribers {
			if s.id == id {
				obs.subscribers = append(obs.subscribers[:i:i], obs.subscribers[i+1:]...)
				break
			}
		}

		var teardown func()
		if len(obs.subscribers) == 0 && !obs.released {
			obs.released = true
			if o.observations[key] == obs {
				delete(o.observations, key)
			}
			if obs.started {
				teardown = obs.teardown
			}
		}
		o.mu.Unlock()

		if teardown != nil {
			teardown()
		}
	})

	if running {
		return unobserve
	}

	emit := func(fn func(S)) {
		o.mu.Lock()
		snapshot := make([]subscriber, len(obs.subscribers))
		copy(snapshot, obs.subscribers)
		o.mu.Unlock()

		for _, s := range snapshot {
			fn(s.value.(S))
		}
	}

	teardown := worker(emit)

	o.mu.Lock()
	obs.teardown = teardown
	obs.started = true
	releasedDuringStart := obs.released
	o.mu.Unlock()

	// every subscriber left while the worker was starting
	if releasedDuringStart && teardown != nil {
		teardown()
	}

	return unobserve
}
