package recognizer

import (
	"sort"
	"strings"
	"sync"

	"github.com/voxhaus/voxhaus/pkg/adapters/stt"
)

// Registry maps entity ids to STT capabilities. Entity ids are compared
// case-insensitively, matching how the host platform addresses entities.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]stt.Capability
}

func NewRegistry() *Registry {
	return &Registry{capabilities: make(map[string]stt.Capability)}
}

func (r *Registry) Register(entityID string, capability stt.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[normalizeEntityID(entityID)] = capability
}

// Lookup returns the capability for an entity id, or false when absent.
func (r *Registry) Lookup(entityID string) (stt.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	capability, ok := r.capabilities[normalizeEntityID(entityID)]
	return capability, ok
}

// EntityIDs lists registered entity ids in stable order.
func (r *Registry) EntityIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.capabilities))
	for id := range r.capabilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeEntityID(entityID string) string {
	return strings.ToLower(strings.TrimSpace(entityID))
}
