// Package accesskey produces the opaque credentials that identify tickets
// and serve as QR payloads. Keys are unique by construction only
// probabilistically; callers must check against the ticket store and retry.
package accesskey

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tixgate/tixgate/internal/apperr"
)

// MaxAttempts caps the generate-and-check retry loop. Collisions are
// astronomically unlikely given the timestamp component, so hitting the cap
// indicates something badly wrong with the key source.
const MaxAttempts = 20

const keyPrefix = "TK"

const alnum = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces access keys of the form
// TK-<unix millis>-<random alphanumeric fragment>-<random numeric suffix>,
// upper-cased. Not cryptographically unguessable; uniqueness, not secrecy,
// is the enforced property.
type Generator struct {
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

// NewSeededGenerator fixes the random source and clock, for tests.
func NewSeededGenerator(seed int64, now func() time.Time) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed)), now: now}
}

func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	frag := make([]byte, 13)
	for i := range frag {
		frag[i] = alnum[g.rand.Intn(len(alnum))]
	}
	key := fmt.Sprintf("%s-%d-%s-%d", keyPrefix, g.now().UnixMilli(), frag, g.rand.Intn(10000))
	return strings.ToUpper(key)
}

// ExistsFunc is the uniqueness-check capability injected by the caller,
// backed by the ticket store in production and by fakes in tests.
type ExistsFunc func(ctx context.Context, key string) (bool, error)

// GenerateUnique loops generate-then-check until an unused key is found,
// giving up with ExhaustedRetries after MaxAttempts. The check-then-act
// sequence is not atomic; the store's unique index is the hard backstop and
// a write-time conflict means "call this again".
func GenerateUnique(ctx context.Context, g *Generator, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		key := g.Generate()
		taken, err := exists(ctx, key)
		if err != nil {
			return "", apperr.Internal("checking access key uniqueness", err)
		}
		if !taken {
			return key, nil
		}
	}
	return "", apperr.ExhaustedRetries("could not generate a unique access key")
}
