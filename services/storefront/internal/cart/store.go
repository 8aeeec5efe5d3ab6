// Package cart holds the storefront's single cart: its lines, the panel
// flag, and the write-behind persistence of the lines to a storage.KeyValue.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
)

// Op names the change that produced a Snapshot.
type Op string

const (
	OpHydrate        Op = "hydrate"
	OpAdd            Op = "add"
	OpRemove         Op = "remove"
	OpUpdateQuantity Op = "update_quantity"
	OpClear          Op = "clear"
	OpPanel          Op = "panel"
	OpRefresh        Op = "refresh"
)

// Options configures a Store. Zero values take the defaults.
type Options struct {
	Key             string
	MaxLineQuantity int
	WriteQueueSize  int
	WriteTimeout    time.Duration
	// OnPersistError is called from the writer goroutine for every failed write.
	OnPersistError func(error)
	Now            func() time.Time
}

const (
	DefaultWriteQueueSize = 64
	DefaultWriteTimeout   = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.WriteQueueSize <= 0 {
		o.WriteQueueSize = DefaultWriteQueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Snapshot is the cart state after one change. Items must not be modified.
type Snapshot struct {
	Revision  uint64
	Op        Op
	Items     domain.Lines
	PanelOpen bool
	Hydrated  bool
}

func (s Snapshot) TotalItems() int             { return s.Items.TotalItems() }
func (s Snapshot) TotalPrice() decimal.Decimal { return s.Items.TotalPrice() }

type mutation func(domain.Lines) domain.Lines

// Store is the process-wide cart. All methods are safe for concurrent use.
// Mutations are visible to readers as soon as they return; persistence
// happens afterwards on a single writer goroutine, in mutation order. When
// storage falls behind, waiting writes are replaced by newer ones rather
// than blocking callers.
type Store struct {
	kv     storage.KeyValue
	opts   Options
	logger *slog.Logger

	mu        sync.RWMutex
	items     domain.Lines
	panelOpen bool
	hydrated  bool
	revision  uint64
	pending   []mutation

	// journal records mutations made while a Refresh is reading storage.
	// It is nil when no Refresh is in flight.
	journal []mutation

	hydrateOnce sync.Once
	ready       chan struct{}
	refreshMu   sync.Mutex

	writes     *writeQueue
	writerDone chan struct{}

	// notifyQueue holds snapshots in revision order until the current
	// deliverer hands them to listeners. Lock order is mu, then notifyMu.
	notifyMu    sync.Mutex
	notifyQueue []Snapshot
	delivering  bool

	listenersMu sync.RWMutex
	listeners   []subscription
	nextID      uint64
}

// NewStore creates a store over kv and starts its writer. Call Hydrate to
// load the persisted cart and Close to drain pending writes.
func NewStore(kv storage.KeyValue, opts Options, logger *slog.Logger) *Store {
	opts = opts.withDefaults()
	s := &Store{
		kv:         kv,
		opts:       opts,
		logger:     logger.With(slog.String("component", "cart_store")),
		items:      domain.Lines{},
		ready:      make(chan struct{}),
		writes:     newWriteQueue(opts.WriteQueueSize),
		writerDone: make(chan struct{}),
	}
	go s.runWriter()
	return s
}

// Hydrate loads the persisted cart once. Later calls return immediately.
// Mutations made before it completes are replayed on top of the loaded
// lines and the result is written back.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() { s.hydrate(ctx) })
}

// Ready is closed once hydration has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) hydrate(ctx context.Context) {
	stored, present, migrated := s.load(ctx)

	s.mu.Lock()
	base := domain.Lines{}
	if present {
		base = stored
	}
	for _, m := range s.pending {
		base = m(base)
	}
	replayed := len(s.pending)
	s.pending = nil
	s.items = base
	s.hydrated = true
	s.revision++
	if replayed > 0 || migrated {
		s.enqueueLocked(s.items)
	}
	snap := s.snapshotLocked(OpHydrate)
	close(s.ready)

	s.logger.InfoContext(ctx, "cart hydrated",
		slog.Bool("found", present),
		slog.Bool("migrated", migrated),
		slog.Int("replayed", replayed),
		slog.Int("lines", len(snap.Items)),
	)
	s.publish(snap)
}

// load reads and decodes the stored cart. Failures are logged and reported
// as not present.
func (s *Store) load(ctx context.Context) (items domain.Lines, present, migrated bool) {
	data, err := s.kv.Get(ctx, s.opts.Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "cart read failed, keeping in-memory state",
				slog.String("key", s.opts.Key),
				slog.String("error", err.Error()),
			)
		}
		return nil, false, false
	}

	items, migrated, err = Decode(data)
	if err != nil {
		s.logger.WarnContext(ctx, "stored cart unreadable, ignoring it",
			slog.String("key", s.opts.Key),
			slog.String("error", err.Error()),
		)
		return nil, false, false
	}
	return items.Normalize(s.opts.MaxLineQuantity), true, migrated
}

// AddItem merges item into the line for the same variant or appends it.
func (s *Store) AddItem(item domain.LineItem) {
	s.mutate(OpAdd, func(l domain.Lines) domain.Lines {
		return l.WithItem(item, s.opts.MaxLineQuantity)
	})
}

// RemoveItem removes every line of product id. Unknown ids leave the lines
// unchanged but are still persisted.
func (s *Store) RemoveItem(id string) {
	s.mutate(OpRemove, func(l domain.Lines) domain.Lines {
		return l.WithoutProduct(id)
	})
}

// UpdateQuantity sets the quantity of every line of product id. A quantity
// of zero or less removes them.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.mutate(OpUpdateQuantity, func(l domain.Lines) domain.Lines {
		return l.WithQuantity(id, quantity, s.opts.MaxLineQuantity)
	})
}

// ClearCart removes all lines.
func (s *Store) ClearCart() {
	s.mutate(OpClear, func(domain.Lines) domain.Lines {
		return domain.Lines{}
	})
}

func (s *Store) mutate(op Op, m mutation) {
	s.mu.Lock()
	s.items = m(s.items)
	if s.hydrated {
		s.enqueueLocked(s.items)
	} else {
		s.pending = append(s.pending, m)
	}
	if s.journal != nil {
		s.journal = append(s.journal, m)
	}
	s.revision++
	s.publish(s.snapshotLocked(op))
}

// SetPanelOpen sets the cart panel flag. It is never persisted and
// subscribers are only told when it changes.
func (s *Store) SetPanelOpen(open bool) {
	s.mu.Lock()
	if s.panelOpen == open {
		s.mu.Unlock()
		return
	}
	s.panelOpen = open
	s.revision++
	s.publish(s.snapshotLocked(OpPanel))
}

// Refresh re-reads the stored cart. A present, readable payload replaces
// the lines, with any mutation made during the read applied on top; the
// resulting lines are then written back. Before hydration it hydrates
// instead.
func (s *Store) Refresh(ctx context.Context) {
	first := false
	s.hydrateOnce.Do(func() {
		first = true
		s.hydrate(ctx)
	})
	if first {
		return
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// The writer drains everything queued so far, then waits on resume
	// until the read is done, so storage only changes from outside.
	done := make(chan struct{})
	resume := make(chan struct{})
	release := sync.OnceFunc(func() { close(resume) })
	defer release()

	s.mu.Lock()
	if ok, _ := s.writes.push(write{done: done, resume: resume}); !ok {
		close(done)
	}
	s.journal = []mutation{}
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		s.journal = nil
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "cart refresh skipped, pending writes not flushed",
			slog.String("error", ctx.Err().Error()),
		)
		return
	}
	stored, present, _ := s.load(ctx)

	s.mu.Lock()
	journal := s.journal
	s.journal = nil
	if present {
		for _, m := range journal {
			stored = m(stored)
		}
		s.items = stored
	}
	s.enqueueLocked(s.items)
	s.revision++
	snap := s.snapshotLocked(OpRefresh)
	release()
	if len(journal) > 0 {
		s.logger.DebugContext(ctx, "cart refresh replayed concurrent changes",
			slog.Int("replayed", len(journal)),
		)
	}
	s.publish(snap)
}

// publish queues snap for subscribers and releases mu, then delivers queued
// snapshots unless another goroutine is already doing so. The caller must
// hold mu. No lock is held while listeners run, so they may read or change
// the store.
func (s *Store) publish(snap Snapshot) {
	s.notifyMu.Lock()
	s.notifyQueue = append(s.notifyQueue, snap)
	s.notifyMu.Unlock()
	s.mu.Unlock()
	s.drainNotifications()
}

func (s *Store) drainNotifications() {
	s.notifyMu.Lock()
	if s.delivering {
		s.notifyMu.Unlock()
		return
	}
	s.delivering = true
	s.notifyMu.Unlock()

	finished := false
	defer func() {
		if !finished {
			// A listener panicked; let the next publisher deliver the rest.
			s.notifyMu.Lock()
			s.delivering = false
			s.notifyMu.Unlock()
		}
	}()

	for {
		s.notifyMu.Lock()
		if len(s.notifyQueue) == 0 {
			s.delivering = false
			s.notifyMu.Unlock()
			finished = true
			return
		}
		next := s.notifyQueue[0]
		s.notifyQueue[0] = Snapshot{}
		s.notifyQueue = s.notifyQueue[1:]
		s.notifyMu.Unlock()

		s.deliver(next)
	}
}

func (s *Store) snapshotLocked(op Op) Snapshot {
	return Snapshot{
		Revision:  s.revision,
		Op:        op,
		Items:     s.items.Clone(),
		PanelOpen: s.panelOpen,
		Hydrated:  s.hydrated,
	}
}

// Items returns a copy of the current lines.
func (s *Store) Items() domain.Lines {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Clone()
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.TotalItems()
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.TotalPrice()
}

func (s *Store) PanelOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panelOpen
}

func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Snapshot returns the current state. Op is empty.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked("")
}
