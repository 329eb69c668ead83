package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/session"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

type mockConference struct {
	mock.Mock
}

func (m *mockConference) Open(ctx context.Context, params types.ConnectionParams) error {
	return m.Called(params).Error(0)
}

func (m *mockConference) Connect(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockConference) Disconnect(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockConference) SetPrivacy(ctx context.Context, device types.Device, private bool) error {
	return m.Called(device, private).Error(0)
}

func (m *mockConference) CycleCamera(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockConference) SetMode(ctx context.Context, mode engine.Mode) error {
	return m.Called(mode).Error(0)
}

func (m *mockConference) Resize(ctx context.Context, width, height int) error {
	return m.Called(width, height).Error(0)
}

func (m *mockConference) Close(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockConference) Snapshot(ctx context.Context) (session.Snapshot, error) {
	args := m.Called()
	return args.Get(0).(session.Snapshot), args.Error(1)
}

func setupRouter(conf Conference) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandlers(conf, nil).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOpenConferenceDefaultsMaxParticipants(t *testing.T) {
	conf := new(mockConference)
	conf.On("Open", types.ConnectionParams{
		Portal:          "portal.example",
		RoomKey:         "room",
		Name:            "Guest",
		MaxParticipants: types.DefaultMaxParticipants,
	}).Return(nil)

	w := do(t, setupRouter(conf), http.MethodPost, "/conference/open", gin.H{
		"portal":  "portal.example",
		"roomKey": "room",
		"name":    "Guest",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	conf.AssertExpectations(t)
}

func TestOpenConferenceValidation(t *testing.T) {
	conf := new(mockConference)

	w := do(t, setupRouter(conf), http.MethodPost, "/conference/open", gin.H{"portal": "p"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	conf.AssertNotCalled(t, "Open", mock.Anything)
}

func TestOpenConferenceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"denied", types.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
		{"already open", types.ErrAlreadyOpen, http.StatusConflict, "already_open"},
		{"engine", types.ErrEngineInitFailed, http.StatusServiceUnavailable, "engine_init_failed"},
		{"closed", types.ErrClosed, http.StatusGone, "closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := new(mockConference)
			conf.On("Open", mock.Anything).Return(tt.err)

			w := do(t, setupRouter(conf), http.MethodPost, "/conference/open", gin.H{
				"portal": "p", "roomKey": "r", "name": "n",
			})

			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestConnectAccepted(t *testing.T) {
	conf := new(mockConference)
	conf.On("Connect").Return(nil).Once()
	conf.On("Connect").Return(types.ErrInvalidState).Once()
	r := setupRouter(conf)

	assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/conference/connect", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/conference/connect", nil).Code)
}

func TestSetPrivacy(t *testing.T) {
	conf := new(mockConference)
	conf.On("SetPrivacy", types.DeviceMicrophone, true).Return(nil)
	r := setupRouter(conf)

	w := do(t, r, http.MethodPost, "/conference/privacy", gin.H{"device": "Microphone", "privacy": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/conference/privacy", gin.H{"device": "speaker", "privacy": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	conf.AssertNumberOfCalls(t, "SetPrivacy", 1)
}

func TestCycleCameraWithoutSession(t *testing.T) {
	conf := new(mockConference)
	conf.On("CycleCamera").Return(types.ErrNoActiveSession)

	w := do(t, setupRouter(conf), http.MethodPost, "/conference/camera/cycle", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetMode(t *testing.T) {
	conf := new(mockConference)
	conf.On("SetMode", engine.ModeBackground).Return(nil)
	r := setupRouter(conf)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/conference/mode", gin.H{"mode": "background"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/conference/mode", gin.H{"mode": "sleep"}).Code)
}

func TestResize(t *testing.T) {
	conf := new(mockConference)
	conf.On("Resize", 640, 480).Return(nil)
	r := setupRouter(conf)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/conference/view", gin.H{"width": 640, "height": 480}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/conference/view", gin.H{"width": 0, "height": 480}).Code)
}

func TestDisconnectAndClose(t *testing.T) {
	conf := new(mockConference)
	conf.On("Disconnect").Return(nil)
	conf.On("Close").Return(nil)
	r := setupRouter(conf)

	assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/conference/disconnect", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/conference/close", nil).Code)
	conf.AssertExpectations(t)
}

func TestStateAndHealth(t *testing.T) {
	conf := new(mockConference)
	conf.On("Snapshot").Return(session.Snapshot{
		State:      types.StateConnected,
		Generation: 2,
		Engine:     types.EngineReady,
	}, nil)
	r := setupRouter(conf)

	w := do(t, r, http.MethodGet, "/conference/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, types.StateConnected, snap.State)
	assert.Equal(t, uint64(2), snap.Generation)

	w = do(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"engine":"ready"`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{types.ErrAlreadyOpen, http.StatusConflict},
		{types.ErrInvalidState, http.StatusConflict},
		{types.ErrAlreadyAttached, http.StatusConflict},
		{types.ErrNoActiveSession, http.StatusNotFound},
		{types.ErrPermissionDenied, http.StatusForbidden},
		{types.ErrInvalidParams, http.StatusBadRequest},
		{types.ErrUnknownDevice, http.StatusBadRequest},
		{types.ErrClosed, http.StatusGone},
		{types.ErrEngineInitFailed, http.StatusServiceUnavailable},
		{types.NewOperationFailed("boom"), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestMetricsEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	metrics.RecordOperation("open", "ok", 0)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewMetricsHandlers(metrics, reg).Register(r)

	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "confbridge_operations_total")

	w = do(t, r, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"operations_total":1`)
}
