// Package prompt builds the seed message that starts each job.
package prompt

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	animals = []string{
		"fox", "red panda", "otter", "hedgehog", "raccoon", "koala", "penguin",
		"sloth", "owl", "capybara", "bunny", "corgi", "kitten", "bear cub",
	}
	traits = []string{
		"sleepy", "cheerful", "grumpy", "curious", "dreamy", "clumsy", "cozy",
	}
	outfits = []string{
		"a knitted scarf", "a tiny barista apron", "oversized round glasses",
		"a woolly beanie", "striped pajamas", "a raincoat", "a bow tie",
	}
	activities = []string{
		"warming its paws on the cup",
		"sniffing the steam with its eyes closed",
		"peeking over the rim of the mug",
		"balancing a croissant on its head",
		"reading the morning paper next to the cup",
		"stirring the coffee with a cinnamon stick",
	}
)

// Generator produces random character prompts. It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	title cases.Caser
}

// NewGenerator returns a generator seeded from seed1 and seed2. Use
// NewRandomGenerator outside tests.
func NewGenerator(seed1, seed2 uint64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed1, seed2)),
		title: cases.Title(language.English),
	}
}

// NewRandomGenerator returns a generator with a random seed.
func NewRandomGenerator() *Generator {
	return NewGenerator(rand.Uint64(), rand.Uint64())
}

// Next returns a new seed message. Its first sentence names the character
// and is what the client is shown.
func (g *Generator) Next() string {
	g.mu.Lock()
	trait := pick(g.rng, traits)
	animal := pick(g.rng, animals)
	outfit := pick(g.rng, outfits)
	activity := pick(g.rng, activities)
	g.mu.Unlock()

	return fmt.Sprintf(
		"A %s %s wearing %s joins your morning coffee. "+
			"Place the %s next to the steaming cup, %s. "+
			"Keep the character small so the coffee stays the star of the picture.",
		trait, g.titleCase(animal), outfit, animal, activity)
}

func (g *Generator) titleCase(s string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.title.String(s)
}

// FirstSentence returns s up to its first period.
func FirstSentence(s string) string {
	first, _, _ := strings.Cut(s, ".")
	return strings.TrimSpace(first)
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.IntN(len(items))]
}
