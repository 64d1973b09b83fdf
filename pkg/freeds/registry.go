package freeds

import (
	"sync"
)

// Registry shares one client per device identity. A client is created by the
// first Acquire and closed when its last holder releases it.
type Registry struct {
	opts []Option

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	client *Client
	refs   int
}

func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:    opts,
		entries: map[string]*registryEntry{},
	}
}

// Acquire returns the client for device and a release func, extra options
// only apply when the client is created by this call.
func (r *Registry) Acquire(device Device, opts ...Option) (*Client, func()) {
	key := device.Identity()

	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &registryEntry{
			client: NewClient(device, append(append([]Option{}, r.opts...), opts...)...),
		}
		r.entries[key] = entry
	}
	entry.refs++
	r.mu.Unlock()

	var once sync.Once
	return entry.client, func() {
		once.Do(func() {
			r.release(key, entry)
		})
	}
}

func (r *Registry) release(key string, entry *registryEntry) {
	r.mu.Lock()
	entry.refs--
	last := entry.refs == 0
	if last && r.entries[key] == entry {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if last {
		entry.client.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
