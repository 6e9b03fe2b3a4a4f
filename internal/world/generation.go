// Resource field generation using layered simplex noise.
// Each resource kind gets its own noise layer so nodes cluster (forests,
// quarries, meadows) instead of scattering uniformly.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hearthstead/internal/economy"
)

// GenConfig holds resource field parameters.
type GenConfig struct {
	Size     int   // world side in pixels
	TileSize int   // grid cell in pixels
	Seed     int64 // random seed (0 = random)

	// Counts overrides economy.ResourceCounts when non-nil.
	Counts map[economy.ResourceKind]int
}

// SmallTestConfig returns a tiny field for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Size:     640,
		TileSize: 16,
		Seed:     42,
		Counts: map[economy.ResourceKind]int{
			economy.ResourceTree:     12,
			economy.ResourceRock:     6,
			economy.ResourceBerries:  6,
			economy.ResourceFishSpot: 4,
		},
	}
}

// Per-kind clustering: how strongly the noise field gates acceptance, and
// its base frequency. Kinds missing here place uniformly.
var clustering = map[economy.ResourceKind]struct {
	threshold float64
	frequency float64
}{
	economy.ResourceTree:       {0.52, 0.05},
	economy.ResourceRock:       {0.55, 0.07},
	economy.ResourceBerries:    {0.50, 0.09},
	economy.ResourceWheatField: {0.55, 0.04},
	economy.ResourceCoalSeam:   {0.58, 0.08},
	economy.ResourceFishSpot:   {0.60, 0.03},
}

// maxRejections bounds how many noise-gated candidates a single node may
// reject before it is placed unconditionally.
const maxRejections = 32

// Generate places exactly the configured number of nodes of every kind, in
// economy.ResourceKinds order, with ids res_0, res_1, …. Positions are tile
// centres. The same seed always yields the same field.
func Generate(cfg GenConfig) []*Resource {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	counts := cfg.Counts
	if counts == nil {
		counts = economy.ResourceCounts
	}
	tiles := cfg.Size / cfg.TileSize
	if tiles <= 0 {
		return nil
	}

	var out []*Resource
	for i, kind := range economy.ResourceKinds {
		n := counts[kind]
		if n <= 0 {
			continue
		}
		noise := opensimplex.NewNormalized(seed + int64(i) + 1)
		cl, clustered := clustering[kind]

		for placed := 0; placed < n; placed++ {
			var tx, ty int
			for attempt := 0; ; attempt++ {
				tx, ty = rng.Intn(tiles), rng.Intn(tiles)
				if !clustered || attempt >= maxRejections {
					break
				}
				v := octaveNoise(noise, float64(tx), float64(ty), 3, cl.frequency, 0.5)
				if kind == economy.ResourceFishSpot {
					v = shoreline(v)
				}
				if v >= cl.threshold {
					break
				}
			}
			half := float64(cfg.TileSize) / 2
			out = append(out, &Resource{
				ID:   fmt.Sprintf("res_%d", len(out)),
				Kind: kind,
				X:    float64(tx*cfg.TileSize) + half,
				Y:    float64(ty*cfg.TileSize) + half,
			})
		}
	}
	return out
}

// shoreline folds a noise value so the band around 0.5 scores highest,
// giving fish spots long thin runs rather than blobs.
func shoreline(v float64) float64 {
	return 1 - 2*math.Abs(v-0.5)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// KindCounts returns a summary of node kind distribution.
func KindCounts(res []*Resource) map[economy.ResourceKind]int {
	counts := make(map[economy.ResourceKind]int)
	for _, r := range res {
		counts[r.Kind]++
	}
	return counts
}
