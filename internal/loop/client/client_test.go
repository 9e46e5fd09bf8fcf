package client

import (
	"bufio"
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/sieve/internal/input"
	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/loop/server"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/physics"
	"github.com/tomz197/sieve/internal/tilt"
)

type fakeServer struct {
	mu           sync.Mutex
	handle       *server.ClientHandle
	inputs       []server.Control
	levels       []int
	stopped      int
	unregistered bool
	snapshot     *server.TableSnapshot
}

var _ server.GameServer = (*fakeServer)(nil)

func newFakeServer() *fakeServer {
	return &fakeServer{
		handle: &server.ClientHandle{
			ID:       1,
			PairCode: "ABCDEF",
			Fuser:    tilt.NewFuser(tilt.DefaultParams()),
			EventsCh: make(chan server.ClientEvent, 16),
		},
		snapshot: &server.TableSnapshot{
			Sieve:    physics.DefaultSieve(),
			Rotation: physics.RotationXZ(0, 0),
		},
	}
}

func (f *fakeServer) RegisterClient(username string) *server.ClientHandle {
	f.handle.Username = username
	return f.handle
}

func (f *fakeServer) UnregisterClient(clientID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = true
}

func (f *fakeServer) SendInput(clientID int, in server.Control) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
}

func (f *fakeServer) StartLevel(clientID int, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = append(f.levels, n)
}

func (f *fakeServer) StopLevel(clientID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeServer) GetSnapshot(clientID int) *server.TableSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeServer) Tilt(clientID int) *tilt.Fuser { return f.handle.Fuser }

func newTestClient(t *testing.T, keys string) (*Client, *fakeServer, *bytes.Buffer) {
	t.Helper()
	fs := newFakeServer()
	var out bytes.Buffer
	c := NewClient(fs, bufio.NewReader(strings.NewReader(keys)), &out, ClientOptions{
		Username:     "tester",
		BridgeURL:    "http://localhost:8081/",
		TermSizeFunc: func() (int, int, error) { return 100, 40, nil },
	})
	return c, fs, &out
}

func TestClampTermSize(t *testing.T) {
	w, h, col, row := clampTermSize(100, 40)
	assert.Equal(t, []int{100, 40, 0, 0}, []int{w, h, col, row})

	w, h, col, row = clampTermSize(200, 60)
	assert.Equal(t, []int{160, 50, 20, 5}, []int{w, h, col, row})
}

func TestMenuPicksAndStartsLevel(t *testing.T) {
	c, fs, _ := newTestClient(t, "")

	c.state.Input = input.Input{Number: 3}
	c.updateMenuState()
	assert.Equal(t, 3, c.state.Level)
	assert.Equal(t, GameStateMenu, c.state.GameState)

	c.state.Input = input.Input{Number: 0}
	c.updateMenuState()
	assert.Equal(t, 10, c.state.Level)

	c.state.Input = input.Input{Number: -1, Space: true}
	c.updateMenuState()
	assert.Equal(t, GameStatePlaying, c.state.GameState)
	assert.Equal(t, []int{10}, fs.levels)
}

func TestKeysNudgePointer(t *testing.T) {
	c, _, _ := newTestClient(t, "")
	c.state.delta = 500 * time.Millisecond

	c.state.Input = input.Input{Number: -1, Right: true, Up: true}
	c.updatePointer()
	assert.InDelta(t, 0.75, c.state.PointerX, 1e-9)
	assert.InDelta(t, -0.75, c.state.PointerY, 1e-9)

	c.updatePointer()
	assert.Equal(t, 1.0, c.state.PointerX)
	assert.Equal(t, -1.0, c.state.PointerY)

	c.state.Input = input.Input{Number: -1, Center: true}
	c.updatePointer()
	assert.Zero(t, c.state.PointerX)
	assert.Zero(t, c.state.PointerY)
}

func TestMouseSetsPointer(t *testing.T) {
	c, _, _ := newTestClient(t, "")

	x, y := c.pointerFromMouse(input.Mouse{Valid: true, Col: 100, Row: 40})
	assert.Greater(t, x, 0.95)
	assert.Greater(t, y, 0.95)

	x, y = c.pointerFromMouse(input.Mouse{Valid: true, Col: 1, Row: 1})
	assert.Less(t, x, -0.95)
	assert.Less(t, y, -0.9)

	x, y = c.pointerFromMouse(input.Mouse{Valid: true, Col: 51, Row: 21})
	assert.InDelta(t, 0, x, 0.05)
	assert.InDelta(t, 0, y, 0.05)
}

func TestPlayingSendsPointer(t *testing.T) {
	c, fs, _ := newTestClient(t, "")
	c.startLevel(1)
	c.state.PointerX = 0.5

	c.processInput()
	require.NotEmpty(t, fs.inputs)
	assert.Equal(t, 0.5, fs.inputs[len(fs.inputs)-1].PointerX)
}

func TestLevelCompleteAdvances(t *testing.T) {
	c, fs, _ := newTestClient(t, "")
	c.startLevel(4)

	c.handleEvent(server.ClientEvent{Type: server.EventLevelComplete, Level: level.ForLevel(3)})
	assert.Equal(t, GameStatePlaying, c.state.GameState, "stale level is ignored")

	c.handleEvent(server.ClientEvent{Type: server.EventLevelComplete, Level: level.ForLevel(4)})
	assert.Equal(t, GameStateLevelComplete, c.state.GameState)
	assert.Positive(t, c.sieve.Blink)
	c.updateEffects()
	assert.NotEmpty(t, c.effects)

	c.state.Input = input.Input{Number: -1, Enter: true}
	c.updateLevelCompleteState()
	assert.Equal(t, GameStatePlaying, c.state.GameState)
	assert.Equal(t, 5, c.state.Level)
	assert.Equal(t, []int{4, 5}, fs.levels)
}

func TestEscapeStopsLevel(t *testing.T) {
	c, fs, _ := newTestClient(t, "")
	c.startLevel(1)

	c.state.Input = input.Input{Number: -1, Escape: true}
	c.updatePlayingState()
	require.Equal(t, GameStateMenu, c.state.GameState)
	assert.Equal(t, 1, fs.stopped)

	// A completion already in flight must not leave the menu.
	c.handleEvent(server.ClientEvent{Type: server.EventLevelComplete, Level: level.ForLevel(1)})
	assert.Equal(t, GameStateMenu, c.state.GameState)
	assert.Zero(t, c.sieve.Blink)
}

func TestLevelCompleteIgnoredBehindMenuNotice(t *testing.T) {
	c, _, _ := newTestClient(t, "")
	c.handleEvent(server.ClientEvent{Type: server.EventSensorNotice, Err: tilt.ErrSensorUnavailable})
	require.Equal(t, GameStateNotice, c.state.GameState)

	c.handleEvent(server.ClientEvent{Type: server.EventLevelComplete, Level: level.ForLevel(1)})
	assert.Equal(t, GameStateMenu, c.state.noticeFrom)
}

func TestLastLevelReturnsToMenu(t *testing.T) {
	c, _, _ := newTestClient(t, "")
	c.startLevel(level.MaxLevel)
	c.handleEvent(server.ClientEvent{Type: server.EventLevelComplete, Level: level.ForLevel(level.MaxLevel)})
	assert.True(t, c.state.Cleared)

	c.state.Input = input.Input{Number: -1, Space: true}
	c.updateLevelCompleteState()
	assert.Equal(t, GameStateMenu, c.state.GameState)
	assert.Equal(t, 1, c.state.Level)
}

func TestPermissionNoticeIsShownOnce(t *testing.T) {
	c, _, _ := newTestClient(t, "")
	c.startLevel(1)

	c.handleEvent(server.ClientEvent{Type: server.EventSensorNotice, Err: tilt.ErrPermissionDenied})
	require.Equal(t, GameStateNotice, c.state.GameState)
	assert.Equal(t, permissionNotice, c.state.Notice)

	// Completing while the notice is up lands on the summary afterwards.
	c.handleEvent(server.ClientEvent{Type: server.EventLevelComplete, Level: level.ForLevel(1)})
	assert.Equal(t, GameStateNotice, c.state.GameState)

	c.state.Input = input.Input{Number: -1, Space: true}
	c.updateNoticeState()
	assert.Equal(t, GameStateLevelComplete, c.state.GameState)

	c.handleEvent(server.ClientEvent{Type: server.EventSensorNotice, Err: tilt.ErrPermissionDenied})
	assert.Equal(t, GameStateLevelComplete, c.state.GameState)
}

func TestClosedEventsStopClient(t *testing.T) {
	c, fs, _ := newTestClient(t, "")
	close(fs.handle.EventsCh)
	c.processServerEvents()
	assert.False(t, c.state.Running)
}

func TestShutdownCountdown(t *testing.T) {
	c, fs, _ := newTestClient(t, "")
	fs.handle.EventsCh <- server.ClientEvent{Type: server.EventServerShutdown}
	c.processServerEvents()
	require.Equal(t, GameStateShutdown, c.state.GameState)

	c.state.delta = time.Duration(c.state.shutdownTimer+1) * time.Second
	c.updateShutdownState()
	assert.False(t, c.state.Running)
}

func TestDrawMenuAndHUD(t *testing.T) {
	c, fs, out := newTestClient(t, "")

	require.NoError(t, c.drawFrame())
	assert.Contains(t, out.String(), "S I E V E")
	assert.Contains(t, out.String(), "http://localhost:8081/?code=ABCDEF")

	fs.snapshot = &server.TableSnapshot{
		Level:        level.ForLevel(1),
		Phase:        phase.Clearing,
		Started:      true,
		Sieve:        physics.DefaultSieve(),
		Rotation:     physics.RotationXZ(0.2, 0),
		GatherRadius: 1.4,
		ClearRadius:  2.5,
		Players:      2,
		Bodies: []physics.Body{
			physics.NewStone("stone-0", physics.Vec3{}),
			physics.NewBean("bean-0", physics.Vec3{X: 1, Y: 0.2}),
			{ID: "bean-1", Kind: physics.KindBean, Pos: physics.Vec3{Y: -5}, Filtered: true},
		},
	}
	c.startLevel(1)
	out.Reset()
	require.NoError(t, c.drawFrame())

	text := out.String()
	assert.Contains(t, text, "Level 1")
	assert.Contains(t, text, "Sift out the beans: 1 left")
	assert.Contains(t, text, "Players: 2")
	assert.True(t, c.dropped["bean-1"])
}

func TestRunQuits(t *testing.T) {
	c, fs, _ := newTestClient(t, "q")

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not quit")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.True(t, fs.unregistered)
}
