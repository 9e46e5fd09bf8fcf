package client

import (
	"bufio"
	"errors"
	"io"
	"math"
	"time"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/input"
	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/loop/config"
	"github.com/tomz197/sieve/internal/loop/server"
	"github.com/tomz197/sieve/internal/object"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/physics"
	"github.com/tomz197/sieve/internal/tilt"
)

// permissionNotice is shown when the phone refuses sensor access.
const permissionNotice = "Sensor permission is required to play with tilt controls."

// Client handles rendering and input for a single connection.
type Client struct {
	server       server.GameServer
	handle       *server.ClientHandle
	state        *ClientState
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates UI text for chunked output
	reader       *bufio.Reader
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	username     string
	bridgeURL    string
	termSizeFunc draw.TermSizeFunc

	// Client-side decoration: the sieve outline and particle effects.
	sieve    *object.Sieve
	effects  []object.Object
	spawned  []object.Object
	dropped  map[string]bool // Beans already seen falling through
	beanTint string
	tintFor  int // Level beanTint was computed for
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
	// BridgeURL is where a phone opens the tilt controller; empty hides
	// the pairing hint.
	BridgeURL string
}

// NewClient creates a new client connected to the given server.
func NewClient(gs server.GameServer, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}

	handle := gs.RegisterClient(opts.Username)
	state := NewClientState()
	state.termSizeFunc = termSizeFunc
	state.View = object.View{
		CenterX: config.ViewWidth / 2,
		CenterY: config.ViewHeight / 2,
		Scale:   config.ViewScale,
		Lift:    config.ViewLift,
	}

	// Create canvas with clamped dimensions for max render resolution
	termWidth, termHeight, _ := draw.TerminalSizeRawWith(termSizeFunc)
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)
	canvas := draw.NewScaledCanvas(renderWidth, renderHeight, config.ViewWidth, config.ViewHeight)
	canvas.SetOffset(offsetCol, offsetRow)
	chunkWriter := draw.NewChunkWriter(w, offsetCol, offsetRow)

	return &Client{
		server:       gs,
		handle:       handle,
		state:        state,
		canvas:       canvas,
		chunkWriter:  chunkWriter,
		reader:       r,
		writer:       w,
		lastInput:    time.Now(),
		inputStream:  input.StartStream(r),
		username:     opts.Username,
		bridgeURL:    opts.BridgeURL,
		termSizeFunc: termSizeFunc,
		sieve:        &object.Sieve{},
		dropped:      make(map[string]bool),
	}
}

// Run starts the client loop. Blocks until the client disconnects or server stops.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)

	lastTime := time.Now()

	for c.state.Running {
		frameStart := time.Now()
		c.state.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		// Process input
		c.processInput()

		// Check for server events
		c.processServerEvents()

		// Handle screen resize
		c.updateScreen()

		// Handle game state
		switch c.state.GameState {
		case GameStateMenu:
			c.updateMenuState()
		case GameStatePlaying:
			c.updatePlayingState()
		case GameStateLevelComplete:
			c.updateLevelCompleteState()
		case GameStateNotice:
			c.updateNoticeState()
		case GameStateShutdown:
			c.updateShutdownState()
		}

		c.updateEffects()

		// Draw frame
		if err := c.drawFrame(); err != nil {
			return err
		}

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	// Unregister from server
	c.server.UnregisterClient(c.handle.ID)
	c.releaseEffects()

	draw.ClearScreen(c.writer)
	return nil
}

// processInput reads input and sends the pointer to the server.
func (c *Client) processInput() {
	c.state.Input = input.ReadInput(c.inputStream)

	// A phone steering the sieve counts as activity.
	active := len(c.state.Input.Pressed) > 0 ||
		(c.state.GameState == GameStatePlaying && c.handle.Fuser.Source() == tilt.SourceSensor)

	if active {
		c.lastInput = time.Now()
		c.state.isInactive = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityDisconnectUser {
		c.state.Running = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityWarnUser {
		c.state.isInactive = true
	}

	if c.state.Input.Quit {
		c.state.Running = false
	}

	if c.state.GameState == GameStatePlaying {
		c.updatePointer()
		// The fuser frame has y up and dips the near edge for positive y,
		// so screen-down passes through unchanged.
		c.server.SendInput(c.handle.ID, server.Control{
			PointerX: c.state.PointerX,
			PointerY: c.state.PointerY,
		})
	}
}

// updatePointer moves the pointer from the mouse or the steering keys.
func (c *Client) updatePointer() {
	in := c.state.Input
	if in.Center {
		c.state.PointerX, c.state.PointerY = 0, 0
		return
	}
	if in.Mouse.Valid {
		c.state.PointerX, c.state.PointerY = c.pointerFromMouse(in.Mouse)
		return
	}

	step := config.PointerKeySpeed * c.state.delta.Seconds()
	if in.Left {
		c.state.PointerX -= step
	}
	if in.Right {
		c.state.PointerX += step
	}
	if in.Up {
		c.state.PointerY -= step
	}
	if in.Down {
		c.state.PointerY += step
	}
	c.state.PointerX = clampUnit(c.state.PointerX)
	c.state.PointerY = clampUnit(c.state.PointerY)
}

// pointerFromMouse maps a terminal cell to [-1,1] around the canvas centre.
func (c *Client) pointerFromMouse(m input.Mouse) (x, y float64) {
	w := float64(c.canvas.TerminalWidth())
	h := float64(c.canvas.TerminalHeight())
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	col := float64(m.Col-c.canvas.OffsetCol()) - 0.5
	row := float64(m.Row-c.canvas.OffsetRow()) - 0.5
	return clampUnit(col/w*2 - 1), clampUnit(row/h*2 - 1)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// processServerEvents handles events from the server.
func (c *Client) processServerEvents() {
	for {
		select {
		case event, ok := <-c.handle.EventsCh:
			if !ok {
				// Server closed the channel
				c.state.Running = false
				return
			}
			c.handleEvent(event)
		default:
			return
		}
	}
}

func (c *Client) handleEvent(event server.ClientEvent) {
	switch event.Type {
	case server.EventPhaseChanged:
		if event.Phase == phase.Clearing && event.Level.Number == c.state.Level {
			object.SpawnBurst(c.state.View.Project(physics.Vec3{}), config.CompleteBurstCount/4, 25, 0.8, c)
		}
	case server.EventLevelComplete:
		if event.Level.Number != c.state.Level || !c.inLevel() {
			return
		}
		c.completeLevel()
	case server.EventSensorNotice:
		c.showNotice(event.Err)
	case server.EventServerShutdown:
		c.state.GameState = GameStateShutdown
		c.state.shutdownTimer = config.ShutdownDisplaySeconds
	}
}

// inLevel reports whether a level is on screen, possibly behind a notice.
func (c *Client) inLevel() bool {
	switch c.state.GameState {
	case GameStatePlaying:
		return true
	case GameStateNotice:
		return c.state.noticeFrom == GameStatePlaying
	}
	return false
}

func (c *Client) completeLevel() {
	c.sieve.Blink = config.CompleteBlinkSeconds
	object.SpawnBurst(c.state.View.Project(physics.Vec3{}), config.CompleteBurstCount, 40, 1.2, c)

	_, more := level.Next(c.state.Level)
	c.state.Cleared = !more

	if c.state.GameState == GameStateNotice {
		c.state.noticeFrom = GameStateLevelComplete
		return
	}
	c.state.GameState = GameStateLevelComplete
}

// showNotice interrupts the game with a message the player must dismiss.
// Play continues with the pointer afterwards.
func (c *Client) showNotice(err error) {
	if c.state.GameState == GameStateShutdown || c.state.GameState == GameStateNotice {
		return
	}
	msg := permissionNotice
	if err != nil && !errors.Is(err, tilt.ErrPermissionDenied) {
		msg = err.Error()
	} else if c.state.noticeShown {
		return
	}
	c.state.noticeShown = true
	c.state.Notice = msg
	c.state.noticeFrom = c.state.GameState
	c.state.GameState = GameStateNotice
	input.ResetKeyInput(c.inputStream)
}

// updateScreen handles terminal resize, clamping to max render resolution.
// On actual size changes, clears the terminal to remove residual pixels
// outside the new canvas area (e.g. old borders or offset content).
func (c *Client) updateScreen() {
	termWidth, termHeight, err := draw.TerminalSizeRawWith(c.termSizeFunc)
	if err != nil {
		return
	}
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)

	if renderWidth != c.canvas.TerminalWidth() || renderHeight != c.canvas.TerminalHeight() ||
		offsetCol != c.canvas.OffsetCol() || offsetRow != c.canvas.OffsetRow() {
		draw.ClearScreen(c.writer)
		c.canvas.ForceRedraw()
	}

	c.canvas.Resize(renderWidth, renderHeight)
	c.canvas.SetOffset(offsetCol, offsetRow)
	c.chunkWriter.SetOffset(offsetCol, offsetRow)
}

// clampTermSize clamps terminal dimensions to the max render resolution and computes
// the centering offset for the render area.
func clampTermSize(termWidth, termHeight int) (renderWidth, renderHeight, offsetCol, offsetRow int) {
	renderWidth = termWidth
	renderHeight = termHeight
	if renderWidth > config.MaxTermWidth {
		renderWidth = config.MaxTermWidth
	}
	if renderHeight > config.MaxTermHeight {
		renderHeight = config.MaxTermHeight
	}
	offsetCol = (termWidth - renderWidth) / 2
	offsetRow = (termHeight - renderHeight) / 2
	return
}

// updateMenuState handles the title screen. Space starts the selected
// level; a digit picks one (0 is level 10).
func (c *Client) updateMenuState() {
	if n := c.state.Input.Number; n >= 0 {
		if n == 0 {
			n = 10
		}
		if n <= level.MaxLevel {
			c.state.Level = n
		}
	}
	if c.state.Input.Confirm() {
		c.startLevel(c.state.Level)
	}
}

// updatePlayingState handles the playing state.
func (c *Client) updatePlayingState() {
	switch {
	case c.state.Input.Restart:
		c.startLevel(c.state.Level)
	case c.state.Input.Escape:
		input.ResetKeyInput(c.inputStream)
		c.server.StopLevel(c.handle.ID)
		c.state.GameState = GameStateMenu
	}
}

// updateLevelCompleteState waits for the player to move on. After the last
// level the game returns to the menu.
func (c *Client) updateLevelCompleteState() {
	if !c.state.Input.Confirm() {
		return
	}
	next, more := level.Next(c.state.Level)
	if !more {
		input.ResetKeyInput(c.inputStream)
		c.state.Level = next
		c.state.Cleared = false
		c.state.GameState = GameStateMenu
		return
	}
	c.startLevel(next)
}

// updateNoticeState returns to the interrupted screen once dismissed.
func (c *Client) updateNoticeState() {
	if c.state.Input.Confirm() {
		input.ResetKeyInput(c.inputStream)
		c.state.Notice = ""
		c.state.GameState = c.state.noticeFrom
	}
}

// startLevel asks the server for a fresh table and resets the decoration.
func (c *Client) startLevel(n int) {
	input.ResetKeyInput(c.inputStream)

	c.state.Level = n
	c.state.Cleared = false
	c.state.PointerX, c.state.PointerY = 0, 0
	c.server.StartLevel(c.handle.ID, n)

	clear(c.dropped)
	c.sieve.Phase = phase.Gathering
	c.sieve.Blink = 0
	c.state.GameState = GameStatePlaying
}

// updateShutdownState handles the shutdown screen countdown.
func (c *Client) updateShutdownState() {
	c.state.shutdownTimer -= c.state.delta.Seconds()
	if c.state.shutdownTimer <= 0 {
		c.state.Running = false
	}
}

// Spawn implements object.Spawner for client-side effects.
func (c *Client) Spawn(obj object.Object) {
	c.spawned = append(c.spawned, obj)
}

// updateEffects advances particles and the sieve blink.
func (c *Client) updateEffects() {
	ctx := object.UpdateContext{Delta: c.state.delta, Spawner: c}
	_, _ = c.sieve.Update(ctx)

	kept := c.effects[:0]
	for _, obj := range c.effects {
		remove, _ := obj.Update(ctx)
		if remove {
			object.ReleaseObject(obj)
			continue
		}
		kept = append(kept, obj)
	}
	c.effects = append(kept, c.spawned...)
	c.spawned = c.spawned[:0]
}

func (c *Client) releaseEffects() {
	for _, obj := range c.effects {
		object.ReleaseObject(obj)
	}
	c.effects = nil
}
