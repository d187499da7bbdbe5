package effects

import (
	"sort"
	"strings"
	"sync"

	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/config"
)

// Registry holds the effects available to a session by name. Removal is reported to
// OnUnregister callbacks so holders of the effect can drop it.
type Registry struct {
	lock      sync.RWMutex
	effects   map[string]Effect
	listeners []func(Effect)
}

func NewRegistry() *Registry {
	return &Registry{
		effects:   make(map[string]Effect),
		listeners: make([]func(Effect), 0),
	}
}

// NewBuiltinRegistry registers the reverser, trimmer and fader configured from cfg.
func NewBuiltinRegistry(cfg config.EffectsConfig) *Registry {
	r := NewRegistry()
	for _, e := range []Effect{NewReverser(), NewTrimmer(cfg.Trimmer), NewFader(cfg.Fader)} {
		if _, err := r.Register(e); err != nil {
			panic(err) // names are fixed and distinct
		}
	}
	return r
}

// Register adds the effect and returns the function that removes it again. Calling the
// returned function more than once has no further effect.
func (r *Registry) Register(e Effect) (func(), error) {
	name := e.Name()
	if name == "" {
		return nil, common.Precondition("register effect", "effect has no name")
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.effects[name]; ok {
		return nil, common.Precondition("register effect", "%s is already registered", name)
	}
	r.effects[name] = e

	once := &sync.Once{}
	return func() {
		once.Do(func() { r.unregister(name, e) })
	}, nil
}

func (r *Registry) unregister(name string, e Effect) {
	r.lock.Lock()
	if r.effects[name] != e {
		r.lock.Unlock()
		return
	}
	delete(r.effects, name)
	listeners := make([]func(Effect), len(r.listeners))
	copy(listeners, r.listeners)
	r.lock.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

func (r *Registry) OnUnregister(fn func(Effect)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) Lookup(name string) (Effect, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	e, ok := r.effects[name]
	return e, ok
}

func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	names := make([]string, 0, len(r.effects))
	for n := range r.effects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Chain resolves a comma-separated list of effect names, in order.
func (r *Registry) Chain(names string) ([]Effect, error) {
	chain := make([]Effect, 0)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		e, ok := r.Lookup(name)
		if !ok {
			return nil, common.Precondition("resolve effects", "unknown effect %q (have %s)", name, strings.Join(r.Names(), ", "))
		}
		chain = append(chain, e)
	}
	return chain, nil
}
