package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sirupsen/logrus"
)

// Replacer is the load path into the cart store.
type Replacer interface {
	Replace(lines []domain.CartLine)
	Merge(saved []domain.CartLine) []domain.CartLine
}

// LoadState is either NotLoaded (Loaded == false) or Loaded(Identity).
type LoadState struct {
	Loaded   bool
	Identity domain.Identity
}

type Options struct {
	LoadTimeout  time.Duration
	WriteTimeout time.Duration
}

type deferredWrite struct {
	delete bool
	lines  []domain.CartLine
}

// Reconciler keeps the remote cart record of the current identity eventually
// consistent with the local cart. It reads the remote record at most once per
// identity and mirrors every local mutation as a best-effort write.
type Reconciler struct {
	conn  backend.Conn
	log   logrus.FieldLogger
	opts  Options
	store Replacer

	mu         sync.Mutex
	identity   domain.Identity
	state      LoadState
	generation uint64
	loading    bool
	// deferred is the latest write made while the load was in flight.
	deferred *deferredWrite

	inflight sync.WaitGroup
}

func New(conn backend.Conn, log logrus.FieldLogger, opts Options) *Reconciler {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Reconciler{
		conn: conn,
		log:  log.WithField("component", "reconciler"),
		opts: opts,
	}
}

// Bind sets the cart store that receives the loaded cart. It must be called
// before the first identity change.
func (r *Reconciler) Bind(store Replacer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
}

// Run waits for the backend connection and then fires the pending load, if
// any. It returns once the connection is ready or ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.conn.WaitReady(ctx); err != nil {
		return
	}
	r.TriggerLoad()
}

// SetIdentity is the identity-change event. Any transition resets the load
// guard; the new identity gets its own one-time load.
func (r *Reconciler) SetIdentity(id domain.Identity) {
	r.mu.Lock()
	if id == r.identity {
		r.mu.Unlock()
		return
	}
	r.log.WithField("from", r.identity.String()).WithField("to", id.String()).Info("identity changed")
	if r.deferred != nil {
		r.log.WithField("principal", r.identity.Principal()).Warn("dropping cart write deferred behind an unfinished load")
	}
	r.identity = id
	r.state = LoadState{}
	r.generation++
	r.loading = false
	r.deferred = nil
	r.mu.Unlock()

	r.TriggerLoad()
}

func (r *Reconciler) Identity() domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

func (r *Reconciler) State() LoadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// TriggerLoad starts the remote load when the backend is ready, the identity
// is authenticated and nothing was loaded for it yet. The guard is taken
// before the read is spawned, so concurrent triggers are no-ops.
func (r *Reconciler) TriggerLoad() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.conn.Ready() || !r.identity.IsAuthenticated() || r.state.Loaded {
		return false
	}
	r.state = LoadState{Loaded: true, Identity: r.identity}
	r.loading = true

	id, gen := r.identity, r.generation
	r.inflight.Add(1)
	go r.load(id, gen)
	return true
}

// load reads the saved cart once. Writes made meanwhile were deferred; they
// are flushed here, merged with the saved cart, so neither side is lost.
func (r *Reconciler) load(id domain.Identity, gen uint64) {
	defer r.inflight.Done()
	log := r.log.WithField("principal", id.Principal())

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.LoadTimeout)
	defer cancel()

	record, err := r.conn.LoadCart(ctx, id)
	switch {
	case err != nil:
		log.WithField("error", err).Warn("failed to load saved cart, continuing with local cart")
		record = nil
	case record.IsEmpty():
		log.Debug("no saved cart")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		log.Debug("discarding saved cart of a previous identity")
		return
	}
	r.loading = false
	deferred := r.deferred
	r.deferred = nil

	if r.store == nil {
		log.Error("saved cart loaded before a store was bound")
		return
	}

	switch {
	case deferred == nil:
		if !record.IsEmpty() {
			r.store.Replace(record.Lines)
			log.WithField("lines", len(record.Lines)).Info("saved cart restored")
		}
	case deferred.delete:
		log.Info("cart cleared while loading, dropping saved cart")
		r.spawn("delete cart", id, func(ctx context.Context) error {
			return r.conn.DeleteCart(ctx, id)
		})
	default:
		lines := deferred.lines
		if !record.IsEmpty() {
			lines = r.store.Merge(record.Lines)
			log.WithField("lines", len(lines)).Info("saved cart merged with changes made while loading")
		}
		r.spawn("save cart", id, func(ctx context.Context) error {
			return r.conn.SaveCart(ctx, id, lines)
		})
	}
}

// Push implements cart.Sink: an asynchronous full-snapshot upsert.
func (r *Reconciler) Push(lines []domain.CartLine) {
	id, ok := r.writableIdentity(&deferredWrite{lines: lines})
	if !ok {
		return
	}
	r.spawn("save cart", id, func(ctx context.Context) error {
		return r.conn.SaveCart(ctx, id, lines)
	})
}

// Delete implements cart.Sink: an asynchronous removal of the remote record.
func (r *Reconciler) Delete() {
	id, ok := r.writableIdentity(&deferredWrite{delete: true})
	if !ok {
		return
	}
	r.spawn("delete cart", id, func(ctx context.Context) error {
		return r.conn.DeleteCart(ctx, id)
	})
}

// Wait blocks until all in-flight loads and write-throughs have finished or
// ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writableIdentity reports whether w may be written now. While the load is
// in flight w replaces any earlier deferred write instead.
func (r *Reconciler) writableIdentity(w *deferredWrite) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.identity.IsAuthenticated() || !r.conn.Ready() {
		return domain.Anonymous, false
	}
	if r.loading {
		r.deferred = w
		return domain.Anonymous, false
	}
	return r.identity, true
}

// spawn runs a write-through in the background. Its result is only logged.
func (r *Reconciler) spawn(op string, id domain.Identity, fn func(ctx context.Context) error) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.log.WithField("principal", id.Principal()).
				WithField("op", op).
				WithField("error", err).
				Warn("write-through failed")
		}
	}()
}
