package schema

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/roach88/modelq/internal/ir"
)

// idSource produces generated default values.
//
// ulid.Monotonic is not safe for concurrent use, so entropy reads are
// serialized.
type idSource struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

func newIDSource(now func() time.Time) *idSource {
	return &idSource{
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// generate evaluates a defaultFn. Unknown names return false.
func (s *idSource) generate(fn string) (ir.Value, bool) {
	switch fn {
	case ir.DefaultFnUUID:
		return ir.String(uuid.NewString()), true
	case ir.DefaultFnUUIDv7:
		return ir.String(uuid.Must(uuid.NewV7()).String()), true
	case ir.DefaultFnULID:
		s.mu.Lock()
		defer s.mu.Unlock()
		return ir.String(ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()), true
	case ir.DefaultFnNow:
		return ir.NewTime(s.now()), true
	}
	return nil, false
}
