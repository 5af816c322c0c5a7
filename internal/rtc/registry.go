package rtc

import (
	"log/slog"
	"sync"
)

// Registry holds at most one Link per remote participant id. Links are
// created lazily on first use and destroyed on departure.
type Registry struct {
	mu      sync.Mutex
	links   map[string]*Link
	factory func(target string) (*Link, error)
}

// NewRegistry creates a registry that builds links with factory.
func NewRegistry(factory func(target string) (*Link, error)) *Registry {
	return &Registry{
		links:   make(map[string]*Link),
		factory: factory,
	}
}

// Obtain returns the link for target, creating it if absent.
func (r *Registry) Obtain(target string) (*Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link, ok := r.links[target]; ok {
		return link, nil
	}
	link, err := r.factory(target)
	if err != nil {
		return nil, err
	}
	r.links[target] = link
	return link, nil
}

// Get returns the link for target, or nil when none exists.
func (r *Registry) Get(target string) *Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.links[target]
}

// Remove closes and forgets the link for target, if any.
func (r *Registry) Remove(target string) {
	r.mu.Lock()
	link, ok := r.links[target]
	if ok {
		delete(r.links, target)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := link.Close(); err != nil {
		slog.Warn("closing peer link", "target", target, "err", err)
	}
}

// CloseAll closes every link and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	links := r.links
	r.links = make(map[string]*Link)
	r.mu.Unlock()
	for target, link := range links {
		if err := link.Close(); err != nil {
			slog.Warn("closing peer link", "target", target, "err", err)
		}
	}
}

// Len reports the number of live links.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}
