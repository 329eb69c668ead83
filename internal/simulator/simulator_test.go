package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	logs   []engine.LogRecord
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) OnConnectSuccess()                       { r.add("success") }
func (r *recorder) OnConnectFailure(reason string)          { r.add("failure:" + reason) }
func (r *recorder) OnDisconnected(reason string)            { r.add("disconnected:" + reason) }
func (r *recorder) OnParticipantJoined(p types.Participant) { r.add("joined:" + p.Name) }
func (r *recorder) OnParticipantLeft(p types.Participant)   { r.add("left:" + p.Name) }
func (r *recorder) OnLog(rec engine.LogRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, rec)
}

func newConnector(t *testing.T, rt *Runtime, opts engine.ConnectorOptions) (*Connector, *recorder) {
	t.Helper()
	rec := &recorder{}
	conn, err := rt.NewConnector(types.Surface{ID: "surface_1", Width: 10, Height: 10}, opts, rec)
	require.NoError(t, err)
	return conn.(*Connector), rec
}

func TestInitialize(t *testing.T) {
	rt := New()
	defer rt.Close()

	require.NoError(t, rt.Initialize())
	assert.Equal(t, 1, rt.InitCalls())

	failing := New(WithInitError(errors.New("no codec")))
	defer failing.Close()
	assert.EqualError(t, failing.Initialize(), "no codec")
}

func TestAutomaticConnectSequence(t *testing.T) {
	rt := New(WithRoster("Alice", "Bob"))
	defer rt.Close()
	conn, rec := newConnector(t, rt, engine.ConnectorOptions{MaxParticipants: 4, ReportLocalParticipant: true})

	require.NoError(t, conn.ConnectToRoomAsGuest("portal", "Me", "room", ""))
	require.NoError(t, conn.Disconnect())
	require.NoError(t, rt.Sync(context.Background()))

	assert.Equal(t, []string{"success", "joined:Me", "joined:Alice", "joined:Bob", "disconnected:local"}, rec.snapshot())
	assert.Equal(t, []string{"connect", "disconnect"}, conn.Calls())
	assert.Same(t, conn, rt.LastConnector())
}

func TestConnectLatency(t *testing.T) {
	rt := New(WithConnectLatency(10 * time.Millisecond))
	defer rt.Close()
	conn, rec := newConnector(t, rt, engine.ConnectorOptions{})

	require.NoError(t, conn.ConnectToRoomAsGuest("portal", "Me", "room", ""))
	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
}

func TestManualEmits(t *testing.T) {
	rt := New(WithManualConnect())
	defer rt.Close()
	conn, rec := newConnector(t, rt, engine.ConnectorOptions{})

	require.NoError(t, conn.ConnectToRoomAsGuest("portal", "Me", "room", ""))
	require.NoError(t, rt.Sync(context.Background()))
	assert.Empty(t, rec.snapshot())

	conn.EmitConnectFailure("timeout")
	alice := conn.EmitParticipantJoined("Alice")
	conn.EmitParticipantLeft(alice)
	conn.EmitDisconnected("remote")
	require.NoError(t, rt.Sync(context.Background()))

	assert.Equal(t, []string{"failure:timeout", "joined:Alice", "left:Alice", "disconnected:remote"}, rec.snapshot())
}

func TestFailNextConnect(t *testing.T) {
	rt := New(WithManualConnect())
	defer rt.Close()
	conn, _ := newConnector(t, rt, engine.ConnectorOptions{})

	conn.FailNextConnect(errors.New("busy"))
	assert.EqualError(t, conn.ConnectToRoomAsGuest("p", "n", "r", ""), "busy")
	assert.NoError(t, conn.ConnectToRoomAsGuest("p", "n", "r", ""))
}

func TestDeviceState(t *testing.T) {
	rt := New()
	defer rt.Close()
	conn, _ := newConnector(t, rt, engine.ConnectorOptions{})

	conn.SetCameraPrivacy(true)
	conn.SetMicrophonePrivacy(true)
	conn.ReleaseDevices()
	conn.SetMode(engine.ModeBackground)
	conn.ShowViewAt(conn.Surface(), 0, 0, 320, 240)

	assert.True(t, conn.CameraPrivate())
	assert.True(t, conn.MicrophonePrivate())
	assert.True(t, conn.DevicesReleased())
	assert.Equal(t, engine.ModeBackground, conn.Mode())
	v, ok := conn.View()
	require.True(t, ok)
	assert.Equal(t, 320, v.Width)

	conn.SelectDefaultDevices()
	conn.HideView(conn.Surface())
	assert.False(t, conn.DevicesReleased())
	_, ok = conn.View()
	assert.False(t, ok)
}

func TestDisabledConnectorRejectsCalls(t *testing.T) {
	rt := New()
	defer rt.Close()
	conn, _ := newConnector(t, rt, engine.ConnectorOptions{})

	conn.Disable()
	assert.True(t, conn.Disabled())
	assert.ErrorIs(t, conn.ConnectToRoomAsGuest("p", "n", "r", ""), ErrDisabled)
	assert.ErrorIs(t, conn.Disconnect(), ErrDisabled)

	conn.SetCameraPrivacy(true)
	assert.False(t, conn.CameraPrivate())
	assert.Equal(t, []string{"disable"}, conn.Calls())
}

func TestLogsOnlyInDebug(t *testing.T) {
	rt := New(WithManualConnect())
	defer rt.Close()

	quiet, quietRec := newConnector(t, rt, engine.ConnectorOptions{})
	loud, loudRec := newConnector(t, rt, engine.ConnectorOptions{Debug: true})

	quiet.EmitLog("info", "hello")
	loud.EmitLog("info", "hello")
	require.NoError(t, rt.Sync(context.Background()))

	assert.Empty(t, quietRec.logs)
	require.Len(t, loudRec.logs, 1)
	assert.Equal(t, "hello", loudRec.logs[0].Message)
	assert.Len(t, rt.Connectors(), 2)
}

func TestConnectorError(t *testing.T) {
	rt := New(WithConnectorError(errors.New("no surface")))
	defer rt.Close()

	_, err := rt.NewConnector(types.Surface{}, engine.ConnectorOptions{}, &recorder{})
	assert.EqualError(t, err, "no surface")
	assert.Nil(t, rt.LastConnector())
}
