package stable

import (
	"maps"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// registry maps factory keys to views.
type registry[K comparable] interface {
	Get(key K) (*View, bool)
	Peek(key K) (*View, bool)
	Add(key K, view *View)
	Remove(key K) bool
	Keys() []K
	Len() int
	Purge()
}

// mapRegistry never evicts on its own.
type mapRegistry[K comparable] struct {
	views   map[K]*View
	onEvict func(K, *View)
}

func newMapRegistry[K comparable](onEvict func(K, *View)) *mapRegistry[K] {
	return &mapRegistry[K]{views: make(map[K]*View), onEvict: onEvict}
}

func (r *mapRegistry[K]) Get(key K) (*View, bool) {
	view, ok := r.views[key]
	return view, ok
}

func (r *mapRegistry[K]) Peek(key K) (*View, bool) {
	return r.Get(key)
}

func (r *mapRegistry[K]) Add(key K, view *View) {
	r.views[key] = view
}

func (r *mapRegistry[K]) Remove(key K) bool {
	view, ok := r.views[key]
	if !ok {
		return false
	}
	delete(r.views, key)
	r.onEvict(key, view)
	return true
}

func (r *mapRegistry[K]) Keys() []K {
	return slices.Collect(maps.Keys(r.views))
}

func (r *mapRegistry[K]) Len() int {
	return len(r.views)
}

func (r *mapRegistry[K]) Purge() {
	views := r.views
	r.views = make(map[K]*View)
	for key, view := range views {
		r.onEvict(key, view)
	}
}

// lruRegistry drops the least recently resolved view once full.
type lruRegistry[K comparable] struct {
	cache *lru.Cache[K, *View]
}

func newLRURegistry[K comparable](size int, onEvict func(K, *View)) (*lruRegistry[K], error) {
	cache, err := lru.NewWithEvict(size, onEvict)
	if err != nil {
		return nil, err
	}
	return &lruRegistry[K]{cache: cache}, nil
}

func (r *lruRegistry[K]) Get(key K) (*View, bool)  { return r.cache.Get(key) }
func (r *lruRegistry[K]) Peek(key K) (*View, bool) { return r.cache.Peek(key) }
func (r *lruRegistry[K]) Add(key K, view *View)    { r.cache.Add(key, view) }
func (r *lruRegistry[K]) Remove(key K) bool        { return r.cache.Remove(key) }
func (r *lruRegistry[K]) Keys() []K                { return r.cache.Keys() }
func (r *lruRegistry[K]) Len() int                 { return r.cache.Len() }
func (r *lruRegistry[K]) Purge()                   { r.cache.Purge() }
