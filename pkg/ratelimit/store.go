package ratelimit

import (
	"container/list"
	"time"
)

// keyedStore tracks per-key state in recency order. It is not safe for
// concurrent use; owners guard it with their own mutex.
type keyedStore[T any] struct {
	maxKeys int
	items   map[string]*list.Element
	lru     *list.List
}

type storeEntry[T any] struct {
	key      string
	lastSeen time.Time
	value    T
}

func newKeyedStore[T any](maxKeys int) *keyedStore[T] {
	return &keyedStore[T]{
		maxKeys: maxKeys,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// touch returns the entry for key, creating it with init when absent.
// Creating at the cap evicts the least recently seen key first.
func (s *keyedStore[T]) touch(key string, now time.Time, init func() T) (*storeEntry[T], bool) {
	if el, ok := s.items[key]; ok {
		s.lru.MoveToFront(el)
		e := el.Value.(*storeEntry[T])
		e.lastSeen = now
		return e, false
	}

	if s.maxKeys > 0 && s.lru.Len() >= s.maxKeys {
		s.evictOldest()
	}

	e := &storeEntry[T]{key: key, lastSeen: now, value: init()}
	s.items[key] = s.lru.PushFront(e)
	return e, true
}

func (s *keyedStore[T]) evictOldest() {
	el := s.lru.Back()
	if el == nil {
		return
	}
	s.lru.Remove(el)
	delete(s.items, el.Value.(*storeEntry[T]).key)
}

// removeFunc deletes every entry for which stale returns true.
func (s *keyedStore[T]) removeFunc(stale func(*storeEntry[T]) bool) int {
	removed := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*storeEntry[T])
		if stale(e) {
			s.lru.Remove(el)
			delete(s.items, e.key)
			removed++
		}
		el = prev
	}
	return removed
}

func (s *keyedStore[T]) len() int {
	return s.lru.Len()
}
