// Package id provides centralized ID generation for the conference bridge.
//
// IDs are prefixed ULIDs so that they sort by creation time and remain
// readable in logs:
//   - call_*: one per host-issued operation tracked by the gateway
//   - req_*:  one per inbound HTTP request on the host bridge
//   - conn_*: one per websocket client attached to the event stream
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// CallID identifies a host operation
type CallID string

// RequestID identifies a host bridge request
type RequestID string

// ClientID identifies an event stream client
type ClientID string

const (
	CallPrefix    = "call"
	RequestPrefix = "req"
	ClientPrefix  = "conn"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// ordering inside the same millisecond
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewCallID generates a new call ID
func NewCallID() CallID {
	return CallID(Default().GenerateWithPrefix(CallPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewClientID generates a new event stream client ID
func NewClientID() ClientID {
	return ClientID(Default().GenerateWithPrefix(ClientPrefix))
}

func (id CallID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id ClientID) String() string  { return string(id) }

// Parse validates a prefixed ID such as "req_01H..." and returns its ULID
func Parse(s, prefix string) (ulid.ULID, error) {
	raw, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("id %q lacks prefix %q", s, prefix)
	}
	return ulid.ParseStrict(raw)
}

// Timestamp extracts the creation time from a prefixed ID
func Timestamp(s, prefix string) (time.Time, error) {
	parsed, err := Parse(s, prefix)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
