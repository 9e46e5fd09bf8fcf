package bridge

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/sieve/internal/tilt"
)

func newTestServer(t *testing.T, reg *Registry) string {
	t.Helper()
	s := httptest.NewServer(NewHandler(reg, Options{HelloTimeout: 2 * time.Second}))
	t.Cleanup(s.Close)
	return s.URL
}

func dial(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendMsg(t *testing.T, ws *websocket.Conn, typ string, payload any) {
	t.Helper()
	b, err := Encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, b))
}

func readMsg(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	return env
}

func float(v float64) *float64 { return &v }

func TestHandlerPairsAndTilts(t *testing.T) {
	reg := NewRegistry()
	f := tilt.NewFuser(tilt.DefaultParams())
	code, err := reg.Pair(Target{Fuser: f})
	require.NoError(t, err)

	ws := dial(t, newTestServer(t, reg))
	sendMsg(t, ws, MsgHello, Hello{Code: strings.ToLower(code)})

	env := readMsg(t, ws)
	require.Equal(t, MsgWelcome, env.T)
	welcome, err := DecodePayload[Welcome](env)
	require.NoError(t, err)
	assert.Equal(t, code, welcome.Code)
	assert.NotEmpty(t, welcome.Session)

	// Phone tipped forward 30° past the resting angle.
	for i := 0; i < 5; i++ {
		sendMsg(t, ws, MsgOrientation, Orientation{Beta: float(75), Gamma: float(0)})
	}
	require.Eventually(t, func() bool {
		return f.Current().X > 0.1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, tilt.SourceSensor, f.Source())
}

func TestHandlerUnknownCode(t *testing.T) {
	ws := dial(t, newTestServer(t, NewRegistry()))
	sendMsg(t, ws, MsgHello, Hello{Code: "ZZZZZZ"})

	env := readMsg(t, ws)
	require.Equal(t, MsgError, env.T)
	e, err := DecodePayload[Error](env)
	require.NoError(t, err)
	assert.Equal(t, ErrUnknownCode.Error(), e.Reason)
}

func TestHandlerRequiresHelloFirst(t *testing.T) {
	ws := dial(t, newTestServer(t, NewRegistry()))
	sendMsg(t, ws, MsgOrientation, Orientation{})

	env := readMsg(t, ws)
	assert.Equal(t, MsgError, env.T)
}

func TestHandlerPermissionDeniedRaisesNotice(t *testing.T) {
	reg := NewRegistry()
	f := tilt.NewFuser(tilt.DefaultParams())
	notices := make(chan error, 1)
	code, err := reg.Pair(Target{Fuser: f, Notice: func(err error) { notices <- err }})
	require.NoError(t, err)

	ws := dial(t, newTestServer(t, reg))
	sendMsg(t, ws, MsgHello, Hello{Code: code})
	require.Equal(t, MsgWelcome, readMsg(t, ws).T)

	sendMsg(t, ws, MsgPermission, Permission{State: PermissionDenied})
	select {
	case err := <-notices:
		assert.ErrorIs(t, err, tilt.ErrPermissionDenied)
	case <-time.After(2 * time.Second):
		t.Fatal("no notice")
	}
	assert.ErrorIs(t, f.SensorError(), tilt.ErrPermissionDenied)

	sendMsg(t, ws, MsgPermission, Permission{State: "maybe"})
	assert.Equal(t, MsgError, readMsg(t, ws).T)
}

func TestHandlerUnavailableIsSilent(t *testing.T) {
	reg := NewRegistry()
	f := tilt.NewFuser(tilt.DefaultParams())
	called := make(chan struct{}, 1)
	code, _ := reg.Pair(Target{Fuser: f, Notice: func(error) { called <- struct{}{} }})

	ws := dial(t, newTestServer(t, reg))
	sendMsg(t, ws, MsgHello, Hello{Code: code})
	require.Equal(t, MsgWelcome, readMsg(t, ws).T)

	sendMsg(t, ws, MsgPermission, Permission{State: PermissionUnavailable})
	require.Eventually(t, func() bool {
		return f.SensorError() != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, f.SensorError(), tilt.ErrSensorUnavailable)
	assert.Empty(t, called)
}

func TestHandlerDisconnectFallsBackToPointer(t *testing.T) {
	reg := NewRegistry()
	f := tilt.NewFuser(tilt.DefaultParams())
	code, _ := reg.Pair(Target{Fuser: f})

	ws := dial(t, newTestServer(t, reg))
	sendMsg(t, ws, MsgHello, Hello{Code: code})
	require.Equal(t, MsgWelcome, readMsg(t, ws).T)
	sendMsg(t, ws, MsgOrientation, Orientation{Beta: float(90), Gamma: float(20)})
	require.Eventually(t, func() bool {
		return f.Source() == tilt.SourceSensor
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool {
		return f.Source() == tilt.SourcePointer
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerServesControllerPage(t *testing.T) {
	base := newTestServer(t, NewRegistry())

	resp, err := http.Get(base + "/?code=ABCDEF")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "deviceorientation")

	missing, err := http.Get(base + "/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
