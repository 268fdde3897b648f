package seed

import (
	"math/rand/v2"
	"strings"

	"happythoughts/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var moods = []string{
	"Grateful for", "So happy about", "Loving", "Smiling because of", "Can't stop thinking about",
}

// Factory builds fake thoughts. A fixed seed gives reproducible output.
type Factory struct {
	faker *gofakeit.Faker
	rng   *rand.Rand
}

// NewFactory returns a Factory. A seed of 0 picks a random one.
func NewFactory(seed uint64) *Factory {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Factory{
		faker: gofakeit.New(int64(seed)),
		rng:   rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// Thought builds an unsaved thought with a short upbeat message and a few hearts.
func (f *Factory) Thought() models.Thought {
	mood := moods[f.rng.IntN(len(moods))]
	subject := strings.ToLower(f.faker.HipsterWord())
	if f.rng.IntN(2) == 0 {
		subject = strings.ToLower(f.faker.Hobby())
	}

	msg := mood + " " + subject + "! " + f.faker.Emoji()
	if len([]rune(msg)) > models.MaxMessageLength {
		msg = string([]rune(msg)[:models.MaxMessageLength])
	}

	return models.Thought{
		Message: msg,
		Hearts:  f.rng.IntN(40),
	}
}

// Thoughts builds n thoughts.
func (f *Factory) Thoughts(n int) []models.Thought {
	out := make([]models.Thought, 0, n)
	for range n {
		out = append(out, f.Thought())
	}
	return out
}
