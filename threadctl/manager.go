package threadctl

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DataExMachina-dev/side-eye-threads/internal/metrics"
)

// Manager tracks the live threads started with it.
type Manager struct {
	mu struct {
		sync.Mutex
		threads map[uuid.UUID]*Thread
	}
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	m := &Manager{}
	m.mu.threads = make(map[uuid.UUID]*Thread)
	return m
}

var defaultManager = NewManager()

// DefaultManager returns the process-wide Manager used when WithManager is
// not given.
func DefaultManager() *Manager {
	return defaultManager
}

func (m *Manager) add(t *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.threads[t.id] = t
}

func (m *Manager) remove(t *Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mu.threads, t.id)
}

// Lookup returns the live thread with the given id.
func (m *Manager) Lookup(id uuid.UUID) (*Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.mu.threads[id]
	return t, ok
}

// List returns the live threads ordered by start time.
func (m *Manager) List() []*Thread {
	m.mu.Lock()
	out := make([]*Thread, 0, len(m.mu.threads))
	for _, t := range m.mu.threads {
		out = append(out, t)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].startedAt.Equal(out[j].startedAt) {
			return out[i].startedAt.Before(out[j].startedAt)
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

// Len returns the number of live threads.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mu.threads)
}

// RegisterMetrics registers the suspend protocol's prometheus collectors with
// r. Only the first call has an effect.
func RegisterMetrics(r prometheus.Registerer) {
	metrics.Register(r)
}
