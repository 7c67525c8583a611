// File: event/base.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event base construction, backend selection and lifecycle.

package event

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/hioload-ev/api"
	"github.com/momentics/hioload-ev/control"
	"github.com/momentics/hioload-ev/internal/activeq"
	"github.com/momentics/hioload-ev/internal/minheap"
	"github.com/momentics/hioload-ev/internal/sigbridge"
	"github.com/momentics/hioload-ev/reactor"
)

// Clock supplies the loop's notion of now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Base is one event loop instance.
type Base struct {
	id      uuid.UUID
	log     *log.Logger
	cfg     control.Config
	clock   Clock
	metrics *control.MetricsRegistry

	probes     *control.DebugProbes
	probeNames []string

	descs   []api.Descriptor
	desc    api.Descriptor
	backend api.Backend

	events     map[*Event]struct{}
	registered int
	active     *activeq.Set[*Event]
	parked     []*Event
	nparked    int
	timers     *minheap.Heap[*Event]

	sig       *sigbridge.Bridge
	sigEv     *Event
	sigEvents map[syscall.Signal][]*Event

	now       time.Time
	inLoop    bool
	iter      uint64
	callbacks uint64

	gotTerm  bool
	gotBreak bool
	closed   bool
}

// Option configures NewBase.
type Option func(*options)

type options struct {
	cfg     *control.Config
	descs   []api.Descriptor
	clock   Clock
	logger  *log.Logger
	metrics *control.MetricsRegistry
}

// WithConfig replaces the default configuration. The environment is not
// consulted for an explicit config; call ApplyEnv first if wanted.
func WithConfig(cfg control.Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// WithDescriptors replaces the platform backend list.
func WithDescriptors(descs ...api.Descriptor) Option {
	return func(o *options) { o.descs = descs }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics makes the base publish its counters after every iteration.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(o *options) { o.metrics = mr }
}

// NewBase creates an event base on the first usable backend.
func NewBase(opts ...Option) (*Base, error) {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := control.DefaultConfig()
	if o.cfg != nil {
		cfg = *o.cfg
	} else {
		cfg.ApplyEnv(os.LookupEnv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.descs == nil {
		o.descs = reactor.Descriptors()
	}

	b := &Base{
		id:        uuid.New(),
		cfg:       cfg,
		clock:     o.clock,
		metrics:   o.metrics,
		events:    make(map[*Event]struct{}),
		active:    activeq.New[*Event](cfg.Priorities),
		timers:    minheap.New[*Event](),
		sigEvents: make(map[syscall.Signal][]*Event),
	}
	b.log = o.logger
	if b.log == nil {
		b.log = log.New(os.Stderr, fmt.Sprintf("[event %s] ", b.ShortID()), log.LstdFlags)
	}
	b.descs = candidates(o.descs, &cfg)
	b.now = b.clock.Now()

	var errs []error
	for _, d := range b.descs {
		be, err := d.New()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		b.desc, b.backend = d, be
		break
	}
	if b.backend == nil {
		return nil, api.ConfigError("create base", errors.Join(append([]error{api.ErrNoBackend}, errs...)...))
	}
	if cfg.ShowMethod {
		b.log.Printf("using backend %s", b.desc.Name)
	}
	b.publish()
	return b, nil
}

// candidates orders descriptors: the preferred backend first, avoided ones
// dropped, the rest in platform order.
func candidates(descs []api.Descriptor, cfg *control.Config) []api.Descriptor {
	out := make([]api.Descriptor, 0, len(descs))
	preferred := func(d api.Descriptor) bool {
		return cfg.Backend != "" && strings.EqualFold(d.Name, cfg.Backend)
	}
	for _, d := range descs {
		if preferred(d) && !cfg.Avoids(d.Name) {
			out = append(out, d)
		}
	}
	for _, d := range descs {
		if cfg.Avoids(d.Name) || preferred(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ID identifies the base in logs and probes.
func (b *Base) ID() uuid.UUID { return b.id }

// ShortID is the first block of the id.
func (b *Base) ShortID() string { return b.id.String()[:8] }

// Method names the backend in use.
func (b *Base) Method() string { return b.desc.Name }

// Priorities is the number of priority queues.
func (b *Base) Priorities() int { return b.active.Levels() }

// RegisteredCount is the number of added user events.
func (b *Base) RegisteredCount() int { return b.registered }

// ActiveCount is the number of events waiting for their callback,
// including those held back for the next iteration.
func (b *Base) ActiveCount() int { return b.active.Len() + b.nparked }

// Now returns the cached loop time inside an iteration and the clock
// otherwise.
func (b *Base) Now() time.Time {
	if b.inLoop {
		return b.now
	}
	return b.refreshNow()
}

// refreshNow reads the clock, never letting the cached value go backwards.
func (b *Base) refreshNow() time.Time {
	if t := b.clock.Now(); t.After(b.now) {
		b.now = t
	}
	return b.now
}

// Reinit rebuilds the backend when its descriptor demands it, for example
// after the kernel state was lost, and re-adds every descriptor event.
func (b *Base) Reinit() error {
	if b.closed {
		return api.ErrBaseClosed
	}
	if !b.desc.NeedReinit && b.backend != nil {
		return nil
	}
	if b.backend != nil {
		if err := b.backend.Close(); err != nil {
			b.log.Printf("close %s: %v", b.desc.Name, err)
		}
		b.backend = nil
	}
	be, err := b.desc.New()
	if err != nil {
		return api.BackendError(b.desc.Name, "reinit", err)
	}
	if err := b.readd(be); err != nil {
		be.Close()
		return api.BackendError(b.desc.Name, "reinit", err)
	}
	b.backend = be
	b.log.Printf("backend %s reinitialized", b.desc.Name)
	return nil
}

// fallback replaces a corrupted backend with the next usable descriptor.
func (b *Base) fallback(cause error) error {
	failed := b.desc.Name
	b.log.Printf("backend %s failed: %v", failed, cause)
	if b.backend != nil {
		_ = b.backend.Close()
		b.backend = nil
	}

	start := 0
	for i, d := range b.descs {
		if d.Name == failed {
			start = i + 1
			break
		}
	}
	for i := 0; i < len(b.descs); i++ {
		d := b.descs[(start+i)%len(b.descs)]
		if d.Name == failed {
			continue
		}
		be, err := d.New()
		if err != nil {
			b.log.Printf("fallback %s: %v", d.Name, err)
			continue
		}
		if err := b.readd(be); err != nil {
			b.log.Printf("fallback %s: %v", d.Name, err)
			be.Close()
			continue
		}
		b.desc, b.backend = d, be
		b.log.Printf("switched backend %s -> %s", failed, d.Name)
		b.publish()
		return nil
	}
	return api.BackendError(failed, "fallback", errors.Join(cause, api.ErrNoBackend))
}

func (b *Base) readd(be api.Backend) error {
	for ev := range b.events {
		if !ev.isIO() {
			continue
		}
		if err := be.Add(ev); err != nil {
			return fmt.Errorf("re-add fd=%d: %w", ev.fd, err)
		}
	}
	return nil
}

// Close deletes every event and releases the backend and the signal bridge.
func (b *Base) Close() error {
	if b.closed {
		return nil
	}
	var errs []error
	for ev := range b.events {
		if err := b.Del(ev); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ev := range drainAll(b.active) {
		ev.res = 0
	}
	for _, ev := range b.parked {
		if b.unpark(ev) {
			ev.res = 0
		}
	}
	b.parked = nil
	if b.sig != nil {
		errs = append(errs, b.sig.Close())
		b.sig, b.sigEv = nil, nil
	}
	if b.backend != nil {
		errs = append(errs, b.backend.Close())
		b.backend = nil
	}
	b.unregisterProbes()
	b.closed = true
	return errors.Join(errs...)
}

func drainAll(s *activeq.Set[*Event]) []*Event {
	var out []*Event
	for p := s.Highest(); p >= 0; p = s.Highest() {
		for {
			ev, ok := s.Pop(p)
			if !ok {
				break
			}
			out = append(out, ev)
		}
	}
	return out
}
