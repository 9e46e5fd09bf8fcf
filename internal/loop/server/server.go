package server

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/sieve/internal/bridge"
	"github.com/tomz197/sieve/internal/config"
	"github.com/tomz197/sieve/internal/level"
	loopconfig "github.com/tomz197/sieve/internal/loop/config"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/tilt"
)

// GameServer is the interface clients use to communicate with the game server.
// Decouples the Client from the concrete Server implementation, enabling
// testing and potential network-based server implementations.
type GameServer interface {
	RegisterClient(username string) *ClientHandle
	UnregisterClient(clientID int)
	SendInput(clientID int, input Control)
	StartLevel(clientID int, n int)
	StopLevel(clientID int)
	GetSnapshot(clientID int) *TableSnapshot
	Tilt(clientID int) *tilt.Fuser
}

// Pairer hands out pairing codes that let a phone steer a table.
// *bridge.Registry implements it.
type Pairer interface {
	Pair(t bridge.Target) (string, error)
	Unpair(code string)
}

// Options configure a Server.
type Options struct {
	Tuning  config.Tuning
	Logger  *log.Logger
	Pairing Pairer // Optional; without it tables are pointer-only
	Seed    int64  // Seeds spawn layouts; zero uses the clock
}

// Server owns every table and steps them at a fixed rate.
type Server struct {
	opts         Options
	log          *log.Logger
	clients      map[int]*ClientHandle
	nextClientID int
	inputChan    chan ClientInput
	registerCh   chan *ClientHandle
	unregisterCh chan int
	levelCh      chan levelRequest
	mu           sync.RWMutex
	ctx          context.Context
	playerCount  atomic.Int32
}

// Compile-time check that Server implements GameServer.
var _ GameServer = (*Server)(nil)

// ClientHandle represents a client's connection to the server.
type ClientHandle struct {
	ID       int
	Username string // Display name for this client
	PairCode string // Bridge pairing code, empty when pairing is unavailable
	Fuser    *tilt.Fuser
	EventsCh chan ClientEvent // Events sent to client (phase changes, notices)

	table *table
}

// Control is the pointer fallback reported by a client each frame, in
// normalised screen coordinates with y up.
type Control struct {
	PointerX float64
	PointerY float64
}

// ClientInput represents input from a specific client.
type ClientInput struct {
	ClientID int
	Input    Control
}

type levelRequest struct {
	clientID int
	level    int
	stop     bool // Leave the level; the table idles until the next start
}

// ClientEvent represents an event sent from server to client.
type ClientEvent struct {
	Type  ClientEventType
	Phase phase.Phase  // New phase for phase events
	Level level.Config // Level the event belongs to
	Err   error        // Cause for sensor notices
}

// ClientEventType identifies the type of client event.
type ClientEventType int

const (
	EventPhaseChanged ClientEventType = iota
	EventLevelComplete
	EventSensorNotice
	EventServerShutdown
)

// NewServer creates a new game server.
func NewServer(opts Options) *Server {
	if opts.Tuning == (config.Tuning{}) {
		opts.Tuning = config.DefaultTuning()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		opts:         opts,
		log:          logger,
		clients:      make(map[int]*ClientHandle),
		nextClientID: 1,
		inputChan:    make(chan ClientInput, 256),
		registerCh:   make(chan *ClientHandle, 16),
		unregisterCh: make(chan int, 16),
		levelCh:      make(chan levelRequest, 16),
		ctx:          context.Background(),
	}
}

// Run starts the server loop. Blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.ctx = ctx
	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		default:
		}

		frameStart := time.Now()
		delta := frameStart.Sub(lastTime)
		lastTime = frameStart

		// Registrations first so a level request never sees a missing table.
		s.processRegistrations()
		s.processLevels()
		s.collectInputs()
		s.updateTables(delta)

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < loopconfig.ServerTickTime {
			time.Sleep(loopconfig.ServerTickTime - elapsed)
		}
	}
}

// Shutdown gracefully shuts down the server by notifying all connected clients
// and waiting for them to disconnect (up to the given timeout).
// The caller should cancel the server context after Shutdown returns.
func (s *Server) Shutdown(timeout time.Duration) {
	s.mu.RLock()
	for _, handle := range s.clients {
		select {
		case handle.EventsCh <- ClientEvent{Type: EventServerShutdown}:
		default:
		}
	}
	s.mu.RUnlock()

	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			s.mu.RLock()
			remaining := len(s.clients)
			s.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// RegisterClient creates a table for a new client and returns its handle.
// The table is pointer-only until a phone pairs with PairCode.
func (s *Server) RegisterClient(username string) *ClientHandle {
	s.mu.Lock()
	id := s.nextClientID
	s.nextClientID++
	s.mu.Unlock()

	t := newTable(s.opts.Tuning, s.opts.Seed+int64(id), s.log.With("client", id))
	handle := &ClientHandle{
		ID:       id,
		Username: username,
		Fuser:    t.fuser,
		EventsCh: make(chan ClientEvent, 16),
		table:    t,
	}

	if s.opts.Pairing != nil {
		code, err := s.opts.Pairing.Pair(bridge.Target{Fuser: t.fuser, Notice: t.notice})
		if err != nil {
			s.log.Warn("pairing unavailable", "client", id, "err", err)
		} else {
			handle.PairCode = code
		}
	}

	s.registerCh <- handle
	return handle
}

// UnregisterClient removes a client from the server.
func (s *Server) UnregisterClient(clientID int) {
	s.unregisterCh <- clientID
}

// SendInput sends input from a client to the server.
func (s *Server) SendInput(clientID int, input Control) {
	select {
	case s.inputChan <- ClientInput{ClientID: clientID, Input: input}:
	default:
		// Input channel full, drop input
	}
}

// StartLevel (re)starts level n on the client's table.
func (s *Server) StartLevel(clientID int, n int) {
	s.levelCh <- levelRequest{clientID: clientID, level: n}
}

// StopLevel halts the client's table, e.g. when the player leaves for the menu.
func (s *Server) StopLevel(clientID int) {
	s.levelCh <- levelRequest{clientID: clientID, stop: true}
}

// GetSnapshot returns the latest snapshot of the client's table. Unknown
// clients get an empty snapshot.
func (s *Server) GetSnapshot(clientID int) *TableSnapshot {
	handle, ok := s.lookup(clientID)
	if !ok {
		return emptySnapshot()
	}
	return handle.table.snapshot.Load()
}

// Tilt returns the fuser steering the client's table, or nil.
func (s *Server) Tilt(clientID int) *tilt.Fuser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if handle, ok := s.clients[clientID]; ok {
		return handle.Fuser
	}
	return nil
}

// processRegistrations handles pending client registrations/unregistrations.
func (s *Server) processRegistrations() {
	for {
		select {
		case handle := <-s.registerCh:
			handle.table.start(s.ctx)
			s.mu.Lock()
			s.clients[handle.ID] = handle
			s.mu.Unlock()
			s.playerCount.Add(1)
			s.log.Info("table opened", "client", handle.ID, "user", handle.Username, "code", handle.PairCode)
		case clientID := <-s.unregisterCh:
			s.mu.Lock()
			handle, ok := s.clients[clientID]
			if ok {
				delete(s.clients, clientID)
			}
			s.mu.Unlock()
			if ok {
				s.release(handle)
				s.playerCount.Add(-1)
				s.log.Info("table closed", "client", clientID)
			}
		default:
			return
		}
	}
}

func (s *Server) release(handle *ClientHandle) {
	if handle.PairCode != "" && s.opts.Pairing != nil {
		s.opts.Pairing.Unpair(handle.PairCode)
	}
	handle.table.stop()
	close(handle.EventsCh)
}

// processLevels applies pending level changes.
func (s *Server) processLevels() {
	for {
		select {
		case req := <-s.levelCh:
			handle, ok := s.lookup(req.clientID)
			if !ok {
				// The registration may have landed after this tick's pass.
				s.processRegistrations()
				if handle, ok = s.lookup(req.clientID); !ok {
					continue
				}
			}
			if req.stop {
				if err := handle.table.stopLevel(s.ctx); err != nil {
					s.log.Error("stop level", "client", req.clientID, "err", err)
				}
				continue
			}
			if err := handle.table.startLevel(s.ctx, req.level); err != nil {
				s.log.Error("start level", "client", req.clientID, "level", req.level, "err", err)
				continue
			}
			s.log.Debug("level started", "client", req.clientID, "level", req.level)
		default:
			return
		}
	}
}

func (s *Server) lookup(clientID int) (*ClientHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle, ok := s.clients[clientID]
	return handle, ok
}

// collectInputs applies the latest pointer of every client.
func (s *Server) collectInputs() {
	for {
		select {
		case ci := <-s.inputChan:
			if handle, ok := s.lookup(ci.ClientID); ok {
				handle.Fuser.Pointer(ci.Input.PointerX, ci.Input.PointerY)
			}
		default:
			return
		}
	}
}

// updateTables steps every table, forwards its events and publishes a
// snapshot.
func (s *Server) updateTables(delta time.Duration) {
	dt := min(delta, loopconfig.MaxStep)
	players := int(s.playerCount.Load())

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, handle := range s.clients {
		t := handle.table
		t.step(dt)
		for _, ev := range t.events() {
			select {
			case handle.EventsCh <- ev:
			default:
				s.log.Warn("client event dropped", "client", handle.ID, "type", ev.Type)
			}
		}
		t.publish(handle.PairCode, players, dt)
	}
}

// closeAll releases every table when the server stops.
func (s *Server) closeAll() {
	s.mu.Lock()
	handles := make([]*ClientHandle, 0, len(s.clients))
	for id, handle := range s.clients {
		handles = append(handles, handle)
		delete(s.clients, id)
	}
	s.mu.Unlock()
	for _, handle := range handles {
		s.release(handle)
	}
}
