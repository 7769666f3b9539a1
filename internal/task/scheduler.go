package task

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Category identifies a logical kind of background operation. Only the most
// recent call of a category delivers its result.
type Category string

const (
	Search   Category = "search"
	Episodes Category = "episodes"
	Rename   Category = "rename"
	Image    Category = "image"
)

type noCache struct{}

func (noCache) String() string { return "nocache" }

// NoCache passed as the first key argument disables result caching for a
// call. The call still takes part in single-flight tracking.
var NoCache any = noCache{}

// ProgressFunc receives the sorted set of categories in flight after every
// change to that set.
type ProgressFunc func(inFlight []Category)

// FailureFunc receives every failed call exactly once, superseded or not.
type FailureFunc func(category Category, err error)

// Options configures a Scheduler.
type Options struct {
	// TTL bounds how long results stay cached. Zero keeps them forever.
	TTL time.Duration
	// Buffer is the capacity of the delivery channel.
	Buffer   int
	Progress ProgressFunc
	Failure  FailureFunc
	Logger   zerolog.Logger
}

// Delivery carries a finished call back to the consumer. It must be handed
// to Apply on the goroutine that owns the consumer state.
type Delivery struct {
	category Category
	gen      uint64
	err      error
	deliver  func()
}

// Category returns the category of the finished call.
func (d Delivery) Category() Category {
	return d.category
}

// Err returns the error of a failed call.
func (d Delivery) Err() error {
	return d.err
}

// Scheduler runs blocking work on background goroutines and hands results to
// a single consumer. Each call registers a new generation for its category;
// a result whose generation is no longer current is dropped on delivery.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cache   *gocache.Cache
	current map[Category]uint64
	gen     uint64

	deliveries chan Delivery
	progress   ProgressFunc
	failure    FailureFunc
	logger     zerolog.Logger
}

// New creates a Scheduler. Work functions receive a context derived from ctx
// that is cancelled by Close.
func New(ctx context.Context, opts Options) *Scheduler {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 16
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		ctx:        ctx,
		cancel:     cancel,
		cache:      gocache.New(ttl, 2*ttl),
		current:    make(map[Category]uint64),
		deliveries: make(chan Delivery, buffer),
		progress:   opts.Progress,
		failure:    opts.Failure,
		logger:     opts.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Execute issues work under category. The cache is consulted first under the
// key formed by category and keyArgs; a hit calls onSuccess before Execute
// returns. A miss supersedes any pending call of the same category and runs
// work on a new goroutine. Execute must be called from the consumer.
func Execute[T any](s *Scheduler, category Category, work func(context.Context) (T, error), onSuccess func(T), keyArgs ...any) {
	cacheable := len(keyArgs) == 0 || keyArgs[0] != NoCache
	key := cacheKey(category, keyArgs)

	s.mu.Lock()
	if cacheable {
		if v, ok := s.cache.Get(key); ok {
			if result, ok := v.(T); ok {
				delete(s.current, category)
				inFlight := s.inFlightLocked()
				s.mu.Unlock()

				s.logger.Debug().Str("category", string(category)).Str("key", key).Msg("cache hit")
				s.publish(inFlight)
				onSuccess(result)
				return
			}
		}
	}
	s.gen++
	gen := s.gen
	s.current[category] = gen
	inFlight := s.inFlightLocked()
	s.mu.Unlock()

	s.publish(inFlight)

	go func() {
		result, err := run(s.ctx, category, work)
		d := Delivery{category: category, gen: gen, err: err}
		if err == nil {
			if cacheable {
				s.mu.Lock()
				s.cache.SetDefault(key, result)
				s.mu.Unlock()
			}
			d.deliver = func() { onSuccess(result) }
		}
		select {
		case s.deliveries <- d:
		case <-s.ctx.Done():
		}
	}()
}

func run[T any](ctx context.Context, category Category, work func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s task panicked: %v", category, r)
		}
	}()
	return work(ctx)
}

// Deliveries returns the channel finished calls arrive on.
func (s *Scheduler) Deliveries() <-chan Delivery {
	return s.deliveries
}

// Apply completes a delivery on the consumer. A success is passed to its
// callback only if no newer call of the category was issued since. A failure
// always reaches the failure sink.
func (s *Scheduler) Apply(d Delivery) {
	s.mu.Lock()
	gen, ok := s.current[d.category]
	current := ok && gen == d.gen
	var inFlight []Category
	if current {
		delete(s.current, d.category)
		inFlight = s.inFlightLocked()
	}
	s.mu.Unlock()

	if current {
		s.publish(inFlight)
	}

	if d.err != nil {
		s.logger.Error().Err(d.err).Str("category", string(d.category)).Bool("superseded", !current).Msg("task failed")
		if s.failure != nil {
			s.failure(d.category, d.err)
		}
		return
	}
	if !current {
		s.logger.Debug().Str("category", string(d.category)).Msg("dropping superseded result")
		return
	}
	d.deliver()
}

// Supersede forgets the pending call of category so its result is dropped.
func (s *Scheduler) Supersede(category Category) {
	s.mu.Lock()
	_, ok := s.current[category]
	delete(s.current, category)
	inFlight := s.inFlightLocked()
	s.mu.Unlock()

	if ok {
		s.publish(inFlight)
	}
}

// Run applies deliveries until ctx is done. It is the consumer loop for
// callers without an event loop of their own.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case d := <-s.deliveries:
			s.Apply(d)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// InFlight returns the sorted set of categories with a pending call.
func (s *Scheduler) InFlight() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlightLocked()
}

// Busy reports whether any of the given categories is in flight.
func (s *Scheduler) Busy(categories ...Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range categories {
		if _, ok := s.current[c]; ok {
			return true
		}
	}
	return false
}

// Close cancels the context handed to work functions. Pending results are
// no longer delivered.
func (s *Scheduler) Close() {
	s.cancel()
}

func (s *Scheduler) inFlightLocked() []Category {
	out := make([]Category, 0, len(s.current))
	for c := range s.current {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func (s *Scheduler) publish(inFlight []Category) {
	if s.progress != nil {
		s.progress(inFlight)
	}
}

func cacheKey(category Category, args []any) string {
	var b strings.Builder
	b.WriteString(string(category))
	for _, arg := range args {
		b.WriteByte(0x1f)
		fmt.Fprint(&b, arg)
	}
	return b.String()
}
