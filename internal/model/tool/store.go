package tool

// Store exposes tool lookup for handlers and services.
type Store interface {
	List() []Tool
	FindByID(id string) (Tool, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Tool
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied tools.
func NewMemoryStore(items []Tool) *MemoryStore {
	return &MemoryStore{items: append([]Tool(nil), items...)}
}

// List returns the catalogue in declaration order.
func (s *MemoryStore) List() []Tool {
	return append([]Tool(nil), s.items...)
}

// ListKind returns the tools of one kind.
func (s *MemoryStore) ListKind(kind Kind) []Tool {
	out := make([]Tool, 0, len(s.items))
	for _, item := range s.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// FindByID looks up a tool by identifier.
func (s *MemoryStore) FindByID(id string) (Tool, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Tool{}, false
}
