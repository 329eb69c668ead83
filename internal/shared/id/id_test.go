package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id2.Compare(id1) <= 0 {
		t.Error("IDs from the same generator should be increasing")
	}
}

func TestTypedIDGeneration(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"call", NewCallID().String(), "call_"},
		{"request", NewRequestID().String(), "req_"},
		{"client", NewClientID().String(), "conn_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.id, tt.prefix) {
				t.Fatalf("ID should start with %q, got: %s", tt.prefix, tt.id)
			}
			if _, err := Parse(tt.id, strings.TrimSuffix(tt.prefix, "_")); err != nil {
				t.Errorf("ID should parse: %v", err)
			}
		})
	}
}

func TestParseRequiresPrefix(t *testing.T) {
	raw := NewGenerator().Generate().String()

	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"prefixed", "req_" + raw, true},
		{"bare ulid", raw, false},
		{"wrong prefix", "call_" + raw, false},
		{"garbage", "req_not-a-ulid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.id, RequestPrefix)
			if (err == nil) != tt.valid {
				t.Errorf("Parse(%q) error = %v, valid = %v", tt.id, err, tt.valid)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	callID := NewCallID().String()

	ts, err := Timestamp(callID, CallPrefix)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should not predate generation", ts)
	}

	if _, err := Timestamp("call_not-a-ulid", CallPrefix); err == nil {
		t.Error("expected error for invalid ULID")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[CallID]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := NewCallID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique IDs, got %d", workers*perWorker, len(seen))
	}
}
