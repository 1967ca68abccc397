package persona

import (
	"strings"
	"sync"
	"time"

	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/kottzoltan/aivio/pkg/utils"
	"go.uber.org/zap"
)

const cachePrefix = "persona:"

// Registry resolves persona keys against the built-in definitions merged
// with any stored overrides. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	builtins  []Persona
	index     map[string]Persona
	overrides map[string]OverrideRecord
	store     Store
	clock     func() time.Time
}

// NewRegistry builds a registry over the built-in personas and loads
// overrides from the given store. A nil store means built-ins only. A store
// that fails to load starts the registry empty of overrides; the failure is
// logged, not fatal.
func NewRegistry(store Store) *Registry {
	builtins := BuiltIns()
	index := make(map[string]Persona, len(builtins))
	for _, p := range builtins {
		index[p.Key] = p
	}

	r := &Registry{
		builtins:  builtins,
		index:     index,
		overrides: make(map[string]OverrideRecord),
		store:     store,
		clock:     time.Now,
	}

	if store != nil {
		overrides, err := store.Load()
		if err != nil {
			logger.Error("failed to load persona overrides, starting with defaults", zap.Error(err))
		} else {
			for key, rec := range overrides {
				if _, ok := index[key]; ok {
					r.overrides[key] = rec
				}
			}
		}
	}
	return r
}

// Resolve returns the merged persona for key, or ErrNotFound.
func (r *Registry) Resolve(key string) (Persona, error) {
	if cached, ok := utils.CacheGet(cachePrefix + key); ok {
		if p, ok := cached.(Persona); ok {
			return p, nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	base, ok := r.index[key]
	if !ok {
		return Persona{}, apperr.NotFoundf("unknown robot %q", key)
	}

	resolved := base
	if override, hasOverride := r.overrides[key]; hasOverride {
		resolved = merge(base, override)
	}
	// Filled while the lock is held so an override write cannot land
	// between the snapshot and the set.
	utils.CacheSet(cachePrefix+key, resolved)
	return resolved, nil
}

// List enumerates personas in registry insertion order.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.builtins))
	for _, p := range r.builtins {
		resolved := p
		if o, ok := r.overrides[p.Key]; ok {
			resolved = merge(p, o)
		}
		out = append(out, Summary{Key: resolved.Key, Title: resolved.Title, Intro: resolved.Intro})
	}
	return out
}

// Override returns the stored override record for key, if any.
func (r *Registry) Override(key string) (OverrideRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.overrides[key]
	return rec, ok
}

// WriteOverride stores field overrides for a known persona key and returns
// the re-resolved persona. Unknown keys are rejected. A failing backing
// store is logged and swallowed; the override still applies in memory.
func (r *Registry) WriteOverride(key string, rec OverrideRecord) (Persona, error) {
	r.mu.Lock()
	base, ok := r.index[key]
	if !ok {
		r.mu.Unlock()
		return Persona{}, apperr.NotFoundf("unknown robot %q", key)
	}

	rec.Title = strings.TrimSpace(rec.Title)
	rec.Intro = strings.TrimSpace(rec.Intro)
	rec.Instruction = strings.TrimSpace(rec.Instruction)
	rec.Style = strings.TrimSpace(rec.Style)
	rec.Script = strings.TrimSpace(rec.Script)
	rec.Knowledge = strings.TrimSpace(rec.Knowledge)
	rec.UpdatedAt = r.clock()

	r.overrides[key] = rec
	resolved := merge(base, rec)
	utils.CacheSet(cachePrefix+key, resolved)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Save(key, rec); err != nil {
			// The override is still served from memory; availability over
			// strict consistency for this demo-grade surface.
			logger.Error("failed to persist persona override",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	return resolved, nil
}
