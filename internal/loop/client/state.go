package client

import (
	"time"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/input"
	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/object"
)

// GameState represents the current screen for a client.
type GameState int

const (
	GameStateMenu          GameState = iota // Title screen and level picker
	GameStatePlaying                        // Active gameplay
	GameStateLevelComplete                  // Level cleared, waiting to continue
	GameStateNotice                         // Blocking message, dismissed by the player
	GameStateShutdown                       // Server is shutting down
)

// ClientState holds per-player state (input, level, pointer, etc.).
// Each client has their own instance, managed by the Client.
type ClientState struct {
	Input     input.Input
	View      object.View // Projection of the sieve onto the canvas
	GameState GameState   // This client's screen
	Level     int         // Level being played
	Cleared   bool        // Every level has been cleared

	// PointerX and PointerY are where the sieve dips, normalised to [-1,1]
	// with x right and y down the screen.
	PointerX float64
	PointerY float64

	Notice      string    // Message shown in GameStateNotice
	noticeFrom  GameState // Screen to return to once the notice is dismissed
	noticeShown bool      // The permission notice is shown once per session

	termSizeFunc  draw.TermSizeFunc // Function to get terminal size
	Running       bool              // Client loop running
	delta         time.Duration     // Frame delta time (client-side)
	shutdownTimer float64           // Countdown before auto-disconnect on shutdown
	isInactive    bool              // Whether the client is in inactive warning state
	prevGameState GameState         // Screen drawn last frame
	wasInactive   bool              // Inactivity warning drawn last frame
}

// NewClientState creates a new initialized client state.
func NewClientState() *ClientState {
	return &ClientState{
		GameState:     GameStateMenu,
		prevGameState: GameStateMenu,
		Level:         1,
		Running:       true,
	}
}

// levelConfig returns the parameters of the current level.
func (s *ClientState) levelConfig() level.Config {
	return level.ForLevel(s.Level)
}
