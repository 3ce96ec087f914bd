package inventory

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand"
	"sync"

	"github.com/Imellstorm/wptest/internal/catalog"
)

const (
	// MinBudget is the lowest total value a generated inventory may have,
	// and the lowest budget ceiling that can be drawn.
	MinBudget = 3
	// MaxBudget is the highest budget ceiling that can be drawn.
	MaxBudget = 20
)

// ErrNoUnitKind is returned for catalogs without a kind priced 1. Without one
// the generator can get stuck below MinBudget with every draw rejected.
var ErrNoUnitKind = errors.New("catalog needs an item kind with unit price 1")

// Source supplies uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Generator produces starting inventories by rejection sampling against a
// random budget ceiling.
type Generator struct {
	catalog *catalog.Catalog

	mu  sync.Mutex
	rng Source
}

// NewGenerator creates a generator drawing from rng. A nil rng is replaced
// with one seeded from the OS.
func NewGenerator(c *catalog.Catalog, rng Source) (*Generator, error) {
	if c.Cheapest() != 1 {
		return nil, ErrNoUnitKind
	}
	if rng == nil {
		rng = newRand()
	}
	return &Generator{catalog: c, rng: rng}, nil
}

func newRand() *rand.Rand {
	var seed int64
	_ = binary.Read(crand.Reader, binary.BigEndian, &seed)
	return rand.New(rand.NewSource(seed))
}

// Generate draws a budget ceiling in [MinBudget, MaxBudget], then keeps
// drawing uniform kinds. A draw that fits under the ceiling is accepted. A
// draw that does not fit ends generation only once the total has reached
// MinBudget; an accepted draw never ends it.
func (g *Generator) Generate() *Inventory {
	g.mu.Lock()
	defer g.mu.Unlock()

	ceiling := MinBudget + g.rng.Intn(MaxBudget-MinBudget+1)
	inv := New()

	for {
		kind := g.catalog.At(g.rng.Intn(g.catalog.Len()))
		candidate := inv.TotalValue + kind.UnitPrice

		if candidate <= ceiling {
			// qty is always 1 here, AddOrIncrement cannot fail
			_ = inv.AddOrIncrement(kind.Name, kind.UnitPrice, 1)
			continue
		}
		if inv.TotalValue >= MinBudget {
			return inv
		}
	}
}
