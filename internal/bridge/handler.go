package bridge

import (
	_ "embed"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/tomz197/sieve/internal/tilt"
)

//go:embed controller.html
var controllerPage []byte

// Options configure a Handler.
type Options struct {
	// OrientationRate and OrientationBurst limit orientation frames per
	// connection; extra frames are dropped.
	OrientationRate  float64
	OrientationBurst int
	// HelloTimeout is how long a new connection may take to pair.
	HelloTimeout time.Duration
	Logger       *log.Logger
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		OrientationRate:  60,
		OrientationBurst: 10,
		HelloTimeout:     30 * time.Second,
	}
}

// Handler serves the controller page on / and the websocket on /ws.
type Handler struct {
	reg      *Registry
	opts     Options
	log      *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewHandler returns a handler that pairs phones through reg.
func NewHandler(reg *Registry, opts Options) *Handler {
	def := DefaultOptions()
	if opts.OrientationRate <= 0 {
		opts.OrientationRate = def.OrientationRate
	}
	if opts.OrientationBurst < 1 {
		opts.OrientationBurst = def.OrientationBurst
	}
	if opts.HelloTimeout <= 0 {
		opts.HelloTimeout = def.HelloTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	h := &Handler{
		reg:  reg,
		opts: opts,
		log:  logger,
		upgrader: websocket.Upgrader{
			// The phone loads the page from this server, but may reach it
			// through a different host name than the terminal advertises.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	h.mux.HandleFunc("/ws", h.serveWS)
	h.mux.HandleFunc("/", h.servePage)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(controllerPage)
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := newConn(ws)
	defer c.close()
	go c.keepAlive()

	session := uuid.NewString()
	logger := h.log.With("session", session, "remote", r.RemoteAddr)

	target, code, err := h.pair(c)
	if err != nil {
		logger.Info("pairing failed", "err", err)
		reason := "pairing failed"
		if errors.Is(err, ErrUnknownCode) {
			reason = ErrUnknownCode.Error()
		}
		_ = c.send(MsgError, Error{Reason: reason})
		return
	}
	if err := c.send(MsgWelcome, Welcome{Session: session, Code: code}); err != nil {
		logger.Debug("welcome failed", "err", err)
		return
	}
	logger.Info("phone paired", "code", code)

	// A phone that goes away leaves the terminal on pointer control.
	defer target.Fuser.SetSensorError(tilt.ErrSensorUnavailable)

	limiter := rate.NewLimiter(rate.Limit(h.opts.OrientationRate), h.opts.OrientationBurst)
	c.setReadDeadline(pongWait)
	for {
		env, err := c.read()
		if err != nil {
			logger.Debug("phone disconnected", "err", err)
			return
		}
		c.setReadDeadline(pongWait)

		switch env.T {
		case MsgOrientation:
			if !limiter.Allow() {
				continue
			}
			o, err := DecodePayload[Orientation](env)
			if err != nil {
				_ = c.send(MsgError, Error{Reason: "bad orientation"})
				continue
			}
			target.Fuser.Orientation(o.Beta, o.Gamma)
		case MsgPermission:
			p, err := DecodePayload[Permission](env)
			if err != nil || !applyPermission(target, p.State) {
				_ = c.send(MsgError, Error{Reason: "bad permission state"})
				continue
			}
			logger.Info("sensor permission", "state", p.State)
		case MsgHello:
			_ = c.send(MsgError, Error{Reason: "already paired"})
		default:
			_ = c.send(MsgError, Error{Reason: "unknown message type"})
		}
	}
}

// pair waits for the hello message and resolves its code.
func (h *Handler) pair(c *conn) (Target, string, error) {
	c.setReadDeadline(h.opts.HelloTimeout)
	env, err := c.read()
	if err != nil {
		return Target{}, "", err
	}
	if env.T != MsgHello {
		return Target{}, "", errors.Errorf("expected %q, got %q", MsgHello, env.T)
	}
	hello, err := DecodePayload[Hello](env)
	if err != nil {
		return Target{}, "", err
	}
	code := NormalizeCode(hello.Code)
	t, err := h.reg.Lookup(code)
	if err != nil {
		return Target{}, "", err
	}
	return t, code, nil
}

// applyPermission records the phone's permission outcome. Denial is shown
// to the player; a missing sensor is not.
func applyPermission(t Target, state string) bool {
	switch state {
	case PermissionGranted:
		t.Fuser.SetSensorError(nil)
	case PermissionDenied:
		t.Fuser.SetSensorError(tilt.ErrPermissionDenied)
		if t.Notice != nil {
			t.Notice(tilt.ErrPermissionDenied)
		}
	case PermissionUnavailable:
		t.Fuser.SetSensorError(tilt.ErrSensorUnavailable)
	default:
		return false
	}
	return true
}
