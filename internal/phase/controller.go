package phase

import (
	"context"
	"time"

	"github.com/tomz197/sieve/internal/level"
)

// DefaultInterval is how often the controller checks for a transition.
const DefaultInterval = time.Second

const inboxSize = 1024

// Options configure a Controller. Callbacks run on the controller goroutine
// and must not block.
type Options struct {
	Interval      time.Duration
	Thresholds    Thresholds
	OnPhaseChange func(Phase)
	OnComplete    func(level.Config)
}

type resetMsg struct {
	cfg  level.Config
	done chan struct{}
}

// Controller runs a Machine on its own goroutine. Reports and resets share
// one inbox so they are applied in the order they were sent.
type Controller struct {
	inbox    chan any
	machine  *Machine
	opts     Options
	quit     chan struct{}
	notified bool
}

// NewController returns a controller for cfg. Call Run to start it.
func NewController(cfg level.Config, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	return &Controller{
		inbox:   make(chan any, inboxSize),
		machine: NewMachine(cfg, opts.Thresholds),
		opts:    opts,
		quit:    make(chan struct{}),
	}
}

// Report queues a position without blocking. When the inbox is full the
// report is dropped and false is returned; the next frame reports again.
func (c *Controller) Report(r Report) bool {
	select {
	case c.inbox <- r:
		return true
	default:
		return false
	}
}

// Reset switches the controller to cfg and waits until the machine has
// been reset. Reports queued before Reset apply to the old level.
func (c *Controller) Reset(ctx context.Context, cfg level.Config) error {
	msg := resetMsg{cfg: cfg, done: make(chan struct{})}
	select {
	case c.inbox <- msg:
	case <-c.quit:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-msg.done:
		return nil
	case <-c.quit:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes the inbox and evaluates on every tick until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.quit)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.inbox:
			c.handle(msg)
		case <-ticker.C:
			c.evaluate()
		}
	}
}

func (c *Controller) handle(msg any) {
	switch m := msg.(type) {
	case Report:
		c.machine.Observe(m)
	case resetMsg:
		c.machine.Reset(m.cfg)
		c.notified = false
		close(m.done)
	}
}

func (c *Controller) evaluate() {
	p, changed := c.machine.Evaluate()
	if !changed {
		return
	}
	if c.opts.OnPhaseChange != nil {
		c.opts.OnPhaseChange(p)
	}
	if p == Complete && !c.notified {
		c.notified = true
		if c.opts.OnComplete != nil {
			c.opts.OnComplete(c.machine.Level())
		}
	}
}
