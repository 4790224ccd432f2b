package temporal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints entity ids from a class name. Ids must be unique within
// a graph; the engine retries on collision.
type IDGenerator interface {
	NewID(name string) string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func(name string) string

// NewID calls f.
func (f IDFunc) NewID(name string) string { return f(name) }

// UUIDs returns the default generator: the class name followed by the
// first eight hex digits of a random UUID, e.g. "person_1f0c9a2b".
func UUIDs() IDGenerator {
	return IDFunc(func(name string) string {
		u := uuid.New()
		return fmt.Sprintf("%s_%s", slug(name), strings.ReplaceAll(u.String(), "-", "")[:8])
	})
}

// SequentialIDs numbers entities per class name: "person_0", "person_1",
// "chair_0". Output is deterministic for a given insertion sequence.
func SequentialIDs() IDGenerator {
	var mu sync.Mutex
	counts := make(map[string]int)
	return IDFunc(func(name string) string {
		mu.Lock()
		defer mu.Unlock()
		s := slug(name)
		n := counts[s]
		counts[s] = n + 1
		return fmt.Sprintf("%s_%d", s, n)
	})
}

// slug turns a class name into an id-friendly token.
func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	if s == "" {
		return "entity"
	}
	return s
}

const maxIDAttempts = 64

// newID asks the generator for an unused id.
func (g *Graph) newID(name string) string {
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = g.ids.NewID(name)
		if _, taken := g.entities[id]; !taken {
			return id
		}
	}
	// The generator keeps colliding; disambiguate deterministically.
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s-%d", id, n)
		if _, taken := g.entities[cand]; !taken {
			return cand
		}
	}
}
