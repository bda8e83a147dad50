package server

import (
	"sort"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const (
	defaultMaxEntries = 1000
	defaultEntryTTL   = time.Hour
)

type entry[T any] struct {
	val     T
	touched time.Time
}

// boundedStore is an in-memory map whose entries expire after ttl without
// use. Past max entries the least recently used are dropped.
type boundedStore[T any] struct {
	m   cmap.ConcurrentMap[string, entry[T]]
	max int
	ttl time.Duration
	now func() time.Time
}

func newBoundedStore[T any](limit int, ttl time.Duration, now func() time.Time) *boundedStore[T] {
	return &boundedStore[T]{m: cmap.New[entry[T]](), max: limit, ttl: ttl, now: now}
}

func (s *boundedStore[T]) Get(id string) (T, bool) {
	e, ok := s.m.Get(id)
	if !ok {
		var zero T
		return zero, false
	}
	now := s.now()
	if now.Sub(e.touched) > s.ttl {
		s.m.RemoveCb(id, func(_ string, cur entry[T], exists bool) bool {
			return exists && cur.touched.Equal(e.touched)
		})
		var zero T
		return zero, false
	}
	e.touched = now
	s.m.Set(id, e)
	return e.val, true
}

func (s *boundedStore[T]) Set(id string, v T) {
	s.m.Set(id, entry[T]{val: v, touched: s.now()})
	if s.m.Count() > s.max {
		s.prune()
	}
}

func (s *boundedStore[T]) Remove(id string) { s.m.Remove(id) }

func (s *boundedStore[T]) Len() int { return s.m.Count() }

// prune drops expired entries, then the oldest until the store fits.
func (s *boundedStore[T]) prune() {
	now := s.now()
	type aged struct {
		id      string
		touched time.Time
	}
	var live []aged
	for id, e := range s.m.Items() {
		if now.Sub(e.touched) > s.ttl {
			s.m.Remove(id)
			continue
		}
		live = append(live, aged{id, e.touched})
	}
	if len(live) <= s.max {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].touched.Before(live[j].touched) })
	for _, a := range live[:len(live)-s.max] {
		s.m.Remove(a.id)
	}
}
