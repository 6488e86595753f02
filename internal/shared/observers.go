package shared

import (
	"sort"
	"sync"
)

// Observers is a set of callbacks keyed by registration order. The zero value is ready to use.
type Observers[T any] struct {
	mu   sync.Mutex
	subs map[int]func(T)
	next int
}

// Subscribe registers fn and returns a function that removes it. Calling the returned function twice is harmless.
func (o *Observers[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	if o.subs == nil {
		o.subs = map[int]func(T){}
	}
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Notify calls every subscriber with v in registration order. It must not be called with the owner's lock held.
func (o *Observers[T]) Notify(v T) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.subs[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports how many subscribers are registered.
func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}
