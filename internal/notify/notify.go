// Package notify provides per-subject change notification.
//
// A Bus is owned by the object it instruments. Dependents subscribe to one
// of the subject's event tags and are called back synchronously, in
// subscription order, whenever the subject notifies that tag.
//
// Event tags are a closed set per subject type (an integer enum declared
// next to the subject), so subscribers are checked at compile time rather
// than by string equality.
//
// The bus is not safe for concurrent use. All notification happens on the
// editor's main loop.
package notify

// Observer is called when the subject fires an event. The payload is
// event-specific context and may be nil.
type Observer[S any] func(source S, payload any)

// subscriber is a single registered observer.
type subscriber[S any] struct {
	observer Observer[S]
	removed  bool
}

// subscriberList keeps observers in subscription order. Removed observers
// stay in place as tombstones until compaction.
type subscriberList[S any] struct {
	items []*subscriber[S]
	live  int
}

// Bus dispatches events of type E raised by a subject of type S.
type Bus[S any, E comparable] struct {
	lists map[E]*subscriberList[S]
}

// New creates an empty bus.
func New[S any, E comparable]() *Bus[S, E] {
	return &Bus[S, E]{
		lists: make(map[E]*subscriberList[S]),
	}
}

// Subscription represents an active observer registration.
type Subscription struct {
	unsubscribe func()
}

// Unsubscribe removes the observer. Safe to call more than once and safe
// to call from inside the observer's own callback.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.unsubscribe == nil {
		return
	}
	s.unsubscribe()
	s.unsubscribe = nil
}

// Subscribe registers an observer for a single event tag.
func (b *Bus[S, E]) Subscribe(event E, observer Observer[S]) *Subscription {
	if b.lists == nil {
		b.lists = make(map[E]*subscriberList[S])
	}

	list := b.lists[event]
	if list == nil {
		list = &subscriberList[S]{}
		b.lists[event] = list
	}

	sub := &subscriber[S]{observer: observer}
	list.items = append(list.items, sub)
	list.live++

	return &Subscription{
		unsubscribe: func() {
			b.remove(event, sub)
		},
	}
}

// Notify calls every observer subscribed to event. The set of observers is
// fixed when Notify is entered: observers added or removed by a callback
// take effect from the next notification.
func (b *Bus[S, E]) Notify(event E, source S, payload any) {
	list := b.lists[event]
	if list == nil || list.live == 0 {
		return
	}

	snapshot := make([]Observer[S], 0, list.live)
	for _, sub := range list.items {
		if !sub.removed {
			snapshot = append(snapshot, sub.observer)
		}
	}

	for _, obs := range snapshot {
		obs(source, payload)
	}
}

// SubscriberCount returns the number of live observers for event.
func (b *Bus[S, E]) SubscriberCount(event E) int {
	list := b.lists[event]
	if list == nil {
		return 0
	}
	return list.live
}

// Clear removes every subscription. Outstanding Subscription handles
// become no-ops.
func (b *Bus[S, E]) Clear() {
	for _, list := range b.lists {
		for _, sub := range list.items {
			sub.removed = true
		}
	}
	b.lists = make(map[E]*subscriberList[S])
}

// remove tombstones sub and compacts the list once at least half of it is
// dead.
func (b *Bus[S, E]) remove(event E, sub *subscriber[S]) {
	if sub.removed {
		return
	}
	sub.removed = true

	list := b.lists[event]
	if list == nil {
		return
	}
	list.live--

	if list.live == 0 {
		delete(b.lists, event)
		return
	}

	if dead := len(list.items) - list.live; dead*2 >= len(list.items) {
		kept := make([]*subscriber[S], 0, list.live)
		for _, s := range list.items {
			if !s.removed {
				kept = append(kept, s)
			}
		}
		list.items = kept
	}
}

// PayloadAs extracts a typed payload. It reports false when the payload is
// nil or of a different type.
func PayloadAs[T any](payload any) (T, bool) {
	v, ok := payload.(T)
	return v, ok
}

// Group collects subscriptions owned by one dependent so they can be
// released together when the dependent is torn down.
type Group struct {
	subs []*Subscription
}

// Add records a subscription and returns it.
func (g *Group) Add(sub *Subscription) *Subscription {
	g.subs = append(g.subs, sub)
	return sub
}

// Len returns the number of recorded subscriptions.
func (g *Group) Len() int {
	return len(g.subs)
}

// UnsubscribeAll releases every recorded subscription.
func (g *Group) UnsubscribeAll() {
	for _, sub := range g.subs {
		sub.Unsubscribe()
	}
	g.subs = nil
}
