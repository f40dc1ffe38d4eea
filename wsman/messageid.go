package wsman

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDProvider produces WS-Addressing message identifiers.
type IDProvider interface {
	NewID() string
}

// UUIDProvider generates random identifiers of the form "uuid:<GUID>".
type UUIDProvider struct{}

// NewID returns a fresh random message ID.
func (UUIDProvider) NewID() string {
	return "uuid:" + strings.ToUpper(uuid.New().String())
}

// IncrementingProvider yields deterministic, sequential identifiers:
// uuid:00000000-0000-0000-0000-000000000001, ...000002 and so on.
// It is safe for concurrent use.
type IncrementingProvider struct {
	n atomic.Uint64
}

// NewID increments the counter and returns the next ID.
func (p *IncrementingProvider) NewID() string {
	return formatSequentialID(p.n.Add(1))
}

// Current returns the number of IDs issued so far.
func (p *IncrementingProvider) Current() uint64 {
	return p.n.Load()
}

func formatSequentialID(n uint64) string {
	return fmt.Sprintf("uuid:00000000-0000-0000-%04X-%012X", (n>>48)&0xFFFF, n&0xFFFFFFFFFFFF)
}
