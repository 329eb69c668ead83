package simulator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Connector implements engine.Connector and records every call made on it
type Connector struct {
	rt      *Runtime
	cb      engine.Callbacks
	opts    engine.ConnectorOptions
	surface types.Surface

	mu                sync.Mutex
	calls             []string
	cameraPrivate     bool
	microphonePrivate bool
	released          bool
	mode              engine.Mode
	disabled          bool
	connectErr        error
	view              *types.Surface
}

var _ engine.Connector = (*Connector)(nil)

// FailNextConnect makes the next ConnectToRoomAsGuest call return err
func (c *Connector) FailNextConnect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

// ConnectToRoomAsGuest implements engine.Connector
func (c *Connector) ConnectToRoomAsGuest(portal, displayName, roomKey, pin string) error {
	if err := c.record("connect"); err != nil {
		return err
	}
	c.mu.Lock()
	err := c.connectErr
	c.connectErr = nil
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.log("info", "VidyoConnector", fmt.Sprintf("connecting %s to %s", displayName, portal))
	if c.rt.manual {
		return nil
	}
	c.rt.schedule(func() {
		c.cb.OnConnectSuccess()
		if c.opts.ReportLocalParticipant {
			c.cb.OnParticipantJoined(types.Participant{ID: uuid.NewString(), Name: displayName, Local: true})
		}
		for _, name := range c.rt.roster {
			c.cb.OnParticipantJoined(types.Participant{ID: uuid.NewString(), Name: name})
		}
	})
	return nil
}

// Disconnect implements engine.Connector
func (c *Connector) Disconnect() error {
	if err := c.record("disconnect"); err != nil {
		return err
	}
	if !c.rt.manual {
		c.rt.schedule(func() { c.cb.OnDisconnected("local") })
	}
	return nil
}

// SetCameraPrivacy implements engine.Connector
func (c *Connector) SetCameraPrivacy(private bool) {
	if c.record(fmt.Sprintf("camera_privacy:%t", private)) == nil {
		c.mu.Lock()
		c.cameraPrivate = private
		c.mu.Unlock()
	}
}

// SetMicrophonePrivacy implements engine.Connector
func (c *Connector) SetMicrophonePrivacy(private bool) {
	if c.record(fmt.Sprintf("microphone_privacy:%t", private)) == nil {
		c.mu.Lock()
		c.microphonePrivate = private
		c.mu.Unlock()
	}
}

// CycleCamera implements engine.Connector
func (c *Connector) CycleCamera() {
	_ = c.record("cycle_camera")
}

// SetMode implements engine.Connector
func (c *Connector) SetMode(mode engine.Mode) {
	if c.record("mode:"+string(mode)) == nil {
		c.mu.Lock()
		c.mode = mode
		c.mu.Unlock()
	}
}

// SelectDefaultDevices implements engine.Connector
func (c *Connector) SelectDefaultDevices() {
	if c.record("select_default_devices") == nil {
		c.mu.Lock()
		c.released = false
		c.mu.Unlock()
	}
}

// ReleaseDevices implements engine.Connector
func (c *Connector) ReleaseDevices() {
	if c.record("release_devices") == nil {
		c.mu.Lock()
		c.released = true
		c.mu.Unlock()
	}
}

// ShowViewAt implements engine.Connector
func (c *Connector) ShowViewAt(surface types.Surface, x, y, width, height int) {
	if c.record(fmt.Sprintf("show_view:%dx%d", width, height)) == nil {
		c.mu.Lock()
		v := surface
		v.Width, v.Height = width, height
		c.view = &v
		c.mu.Unlock()
	}
}

// HideView implements engine.Connector
func (c *Connector) HideView(types.Surface) {
	if c.record("hide_view") == nil {
		c.mu.Lock()
		c.view = nil
		c.mu.Unlock()
	}
}

// Disable implements engine.Connector
func (c *Connector) Disable() {
	if c.record("disable") == nil {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
	}
}

// EmitConnectSuccess delivers a connect success from the engine goroutine
func (c *Connector) EmitConnectSuccess() {
	c.rt.thread.Post(c.cb.OnConnectSuccess)
}

// EmitConnectFailure delivers a connect failure from the engine goroutine
func (c *Connector) EmitConnectFailure(reason string) {
	c.rt.thread.Post(func() { c.cb.OnConnectFailure(reason) })
}

// EmitDisconnected delivers a disconnect from the engine goroutine
func (c *Connector) EmitDisconnected(reason string) {
	c.rt.thread.Post(func() { c.cb.OnDisconnected(reason) })
}

// EmitParticipantJoined announces a remote participant and returns it
func (c *Connector) EmitParticipantJoined(name string) types.Participant {
	p := types.Participant{ID: uuid.NewString(), Name: name}
	c.rt.thread.Post(func() { c.cb.OnParticipantJoined(p) })
	return p
}

// EmitParticipantLeft announces that p left
func (c *Connector) EmitParticipantLeft(p types.Participant) {
	c.rt.thread.Post(func() { c.cb.OnParticipantLeft(p) })
}

// EmitLog delivers an engine log record if a log listener was registered
func (c *Connector) EmitLog(level, message string) {
	c.log(level, "VidyoClient", message)
}

func (c *Connector) log(level, category, message string) {
	if !c.opts.Debug {
		return
	}
	rec := engine.LogRecord{Level: level, Category: category, Message: message, Time: time.Now()}
	c.rt.thread.Post(func() { c.cb.OnLog(rec) })
}

// record appends name to the call log; calls after Disable are errors
func (c *Connector) record(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return ErrDisabled
	}
	c.calls = append(c.calls, name)
	return nil
}

// Calls returns the recorded call log
func (c *Connector) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Options returns the options the connector was created with
func (c *Connector) Options() engine.ConnectorOptions { return c.opts }

// Surface returns the surface the connector was created for
func (c *Connector) Surface() types.Surface { return c.surface }

// View returns the currently shown view geometry
func (c *Connector) View() (types.Surface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return types.Surface{}, false
	}
	return *c.view, true
}

// CameraPrivate reports the camera privacy flag
func (c *Connector) CameraPrivate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraPrivate
}

// MicrophonePrivate reports the microphone privacy flag
func (c *Connector) MicrophonePrivate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.microphonePrivate
}

// DevicesReleased reports whether local devices are released
func (c *Connector) DevicesReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Mode reports the current application mode
func (c *Connector) Mode() engine.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Disabled reports whether Disable was called
func (c *Connector) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}
