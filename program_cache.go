package stable

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProgramCache stores compiled comparator programs keyed by engine and
// expression, so resolving a policy every generation does not recompile.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewProgramCache returns an unbounded in-memory ProgramCache safe for
// concurrent use, so one cache can back many views.
func NewProgramCache() ProgramCache {
	return &memoryProgramCache{programs: make(map[string]any)}
}

type memoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}

// NewBoundedProgramCache returns a ProgramCache holding at most size
// programs, dropping the least recently used.
func NewBoundedProgramCache(size int) (ProgramCache, error) {
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("stable: program cache: %w", err)
	}
	return boundedProgramCache{cache}, nil
}

type boundedProgramCache struct {
	programs *lru.Cache[string, any]
}

func (c boundedProgramCache) Get(key string) (any, bool) {
	return c.programs.Get(key)
}

func (c boundedProgramCache) Set(key string, value any) {
	c.programs.Add(key, value)
}

// programCacheKey scopes a program to its engine and to the helpers it was
// compiled against.
func programCacheKey(engine Mode, registry *FunctionRegistry, expression string) string {
	return string(engine) + ":" + registry.Fingerprint() + ":" + expression
}

// loadProgram returns the program cached for expression, building and storing
// it on a miss. Entries of another type are rebuilt.
func loadProgram[P any](cache ProgramCache, engine Mode, registry *FunctionRegistry, expression string, build func(string) (P, error)) (P, error) {
	key := programCacheKey(engine, registry, expression)
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := build(expression)
	if err != nil {
		var zero P
		return zero, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}
