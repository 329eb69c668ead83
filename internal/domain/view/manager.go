// Package view owns the single presentation surface the engine renders into.
package view

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/id"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Default geometry of a freshly attached surface
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// GeometryFunc receives geometry changes of the attached surface
type GeometryFunc func(types.Surface)

// Manager attaches and detaches the shared surface
type Manager struct {
	mu         sync.Mutex
	surface    *types.Surface
	onGeometry GeometryFunc
	width      int
	height     int
	logger     *logging.Logger
}

// NewManager creates a manager with the default geometry
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		width:  DefaultWidth,
		height: DefaultHeight,
		logger: logger.Named("view"),
	}
}

// WithGeometry sets the initial size of surfaces created by Attach
func (m *Manager) WithGeometry(width, height int) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width > 0 && height > 0 {
		m.width, m.height = width, height
	}
	return m
}

// Attach creates the shared surface and registers the geometry side channel.
// Only one surface may exist at a time.
func (m *Manager) Attach(onGeometry GeometryFunc) (types.Surface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.surface != nil {
		return types.Surface{}, types.ErrAlreadyAttached
	}

	s := types.Surface{
		ID:     id.Default().GenerateWithPrefix("surface"),
		Width:  m.width,
		Height: m.height,
	}
	m.surface = &s
	m.onGeometry = onGeometry

	m.logger.Debug("Surface attached",
		zap.String("surface_id", s.ID),
		zap.Int("width", s.Width),
		zap.Int("height", s.Height))
	return s, nil
}

// Detach removes the surface. It reports the detached surface and false if
// nothing was attached.
func (m *Manager) Detach() (types.Surface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.surface == nil {
		return types.Surface{}, false
	}
	s := *m.surface
	m.surface = nil
	m.onGeometry = nil

	m.logger.Debug("Surface detached", zap.String("surface_id", s.ID))
	return s, true
}

// UpdateGeometry records a layout change for surfaceID. Changes for a surface
// that is no longer attached are discarded.
func (m *Manager) UpdateGeometry(surfaceID string, width, height int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.surface == nil || m.surface.ID != surfaceID {
		return false
	}
	if width <= 0 || height <= 0 {
		return false
	}
	m.surface.Width, m.surface.Height = width, height
	m.width, m.height = width, height

	// Held under the lock so a concurrent Detach cannot run between the
	// check above and the notification.
	if m.onGeometry != nil {
		m.onGeometry(*m.surface)
	}
	return true
}

// Current returns the attached surface, if any
func (m *Manager) Current() (types.Surface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.surface == nil {
		return types.Surface{}, false
	}
	return *m.surface, true
}
