// Package permission makes sure capture permissions are granted before a
// session initializes the engine.
package permission

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Capability is a capture permission the session needs
type Capability string

const (
	Camera     Capability = "camera"
	Microphone Capability = "microphone"
)

// DefaultCapabilities are required to open a conference
var DefaultCapabilities = []Capability{Camera, Microphone}

// Status is the host's current answer for a capability
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
	StatusPrompt  Status = "prompt"
)

// Prompter is the host's permission flow
type Prompter interface {
	// Status reports the current answer without prompting.
	Status(c Capability) Status
	// Request runs the host permission flow for caps and reports whether
	// all of them were granted. It may block for as long as the user takes.
	Request(ctx context.Context, caps []Capability) (bool, error)
}

// Gate coalesces concurrent permission requests into one host prompt
type Gate struct {
	prompter Prompter
	group    singleflight.Group
	logger   *logging.Logger
}

// NewGate creates a gate around the host prompter
func NewGate(prompter Prompter, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{prompter: prompter, logger: logger.Named("permission")}
}

// Ensure returns nil once every capability is granted and
// types.ErrPermissionDenied if the host declines any of them. Only missing
// capabilities are prompted for; identical concurrent requests share a
// single prompt.
func (g *Gate) Ensure(ctx context.Context, caps ...Capability) error {
	missing := g.missing(caps)
	if len(missing) == 0 {
		return nil
	}

	key := requestKey(missing)
	// The shared prompt must outlive any single caller's cancellation.
	promptCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (interface{}, error) {
		g.logger.Info("Requesting permissions", zap.String("capabilities", key))
		return g.prompter.Request(promptCtx, missing)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("permission request failed: %w", res.Err)
		}
		if granted, _ := res.Val.(bool); !granted {
			g.logger.Warn("Permissions declined", zap.String("capabilities", key))
			return fmt.Errorf("%w: %s", types.ErrPermissionDenied, key)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) missing(caps []Capability) []Capability {
	var missing []Capability
	for _, c := range caps {
		if g.prompter.Status(c) != StatusGranted {
			missing = append(missing, c)
		}
	}
	return missing
}

func requestKey(caps []Capability) string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// StaticPrompter answers every request with a fixed decision and remembers
// what it granted. Headless hosts use it in place of a UI prompt.
type StaticPrompter struct {
	grant bool

	mu      sync.Mutex
	granted map[Capability]bool
	prompts int
}

// NewStaticPrompter creates a prompter that always grants or always denies
func NewStaticPrompter(grant bool) *StaticPrompter {
	return &StaticPrompter{grant: grant, granted: make(map[Capability]bool)}
}

// Status implements Prompter
func (p *StaticPrompter) Status(c Capability) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.granted[c] {
		return StatusGranted
	}
	return StatusPrompt
}

// Request implements Prompter
func (p *StaticPrompter) Request(_ context.Context, caps []Capability) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	if !p.grant {
		return false, nil
	}
	for _, c := range caps {
		p.granted[c] = true
	}
	return true, nil
}

// Prompts returns how many times the prompt was shown
func (p *StaticPrompter) Prompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}
