package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/stance/internal/common"
)

// BreakerStatus is the health view of one dependency.
type BreakerStatus struct {
	State    string     `json:"state"`
	Failures int        `json:"failures"`
	OpenedAt *time.Time `json:"opened_at,omitempty"`
}

// Registry holds the policies by dependency name.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	logger   *common.Logger
	opts     []Option
}

// NewRegistry creates an empty registry. Options apply to every policy.
func NewRegistry(logger *common.Logger, opts ...Option) *Registry {
	return &Registry{policies: make(map[string]*Policy), logger: logger, opts: opts}
}

// Register creates and stores a policy, replacing any previous one.
func (r *Registry) Register(name string, cfg common.PolicyConfig) *Policy {
	p := NewPolicy(name, cfg, r.logger, r.opts...)
	r.mu.Lock()
	r.policies[name] = p
	r.mu.Unlock()
	return p
}

// Get returns the named policy or nil.
func (r *Registry) Get(name string) *Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policies[name]
}

// Names returns the registered dependency names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for n := range r.policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Status reports every breaker.
func (r *Registry) Status() map[string]BreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]BreakerStatus, len(r.policies))
	for name, p := range r.policies {
		state, failures, openedAt := p.breaker.Snapshot()
		st := BreakerStatus{State: state.String(), Failures: failures}
		if state != StateClosed && !openedAt.IsZero() {
			t := openedAt
			st.OpenedAt = &t
		}
		out[name] = st
	}
	return out
}

// AnyOpen reports whether any breaker is rejecting calls.
func (r *Registry) AnyOpen() bool {
	for _, st := range r.Status() {
		if st.State == StateOpen.String() {
			return true
		}
	}
	return false
}
