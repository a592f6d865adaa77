package jobs

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID. Ids made in the same millisecond still differ and
// sort in creation order.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}

// ValidID reports whether id looks like an id produced by NewID.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
