package syncer

import (
	"math/rand/v2"
	"strconv"

	"github.com/mesh-intelligence/treesync/pkg/types"
)

// MaxNodeID is the largest identifier the generator hands out.
const MaxNodeID = 0xffff

// randomAttempts bounds the random draws before the generator falls back to
// scanning the id space.
const randomAttempts = 4096

// IDGenerator draws random numeric identifiers in [0, MaxNodeID] and skips
// those already taken.
type IDGenerator struct {
	rng   *rand.Rand
	taken func(id string) bool
}

// NewIDGenerator returns a generator that rejects ids for which taken
// reports true. A nil rng uses a randomly seeded source.
func NewIDGenerator(rng *rand.Rand, taken func(id string) bool) *IDGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &IDGenerator{rng: rng, taken: taken}
}

// Next returns an unused identifier, or ErrIDSpaceExhausted once every id in
// the range is taken.
func (g *IDGenerator) Next() (string, error) {
	for range randomAttempts {
		id := strconv.Itoa(g.rng.IntN(MaxNodeID + 1))
		if !g.taken(id) {
			return id, nil
		}
	}
	start := g.rng.IntN(MaxNodeID + 1)
	for i := range MaxNodeID + 1 {
		id := strconv.Itoa((start + i) % (MaxNodeID + 1))
		if !g.taken(id) {
			return id, nil
		}
	}
	return "", types.ErrIDSpaceExhausted
}
