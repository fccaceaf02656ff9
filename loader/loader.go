package loader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
)

// LoadFunc is the caller-supplied fallible fetch
type LoadFunc[P comparable, R any] func(ctx context.Context, params P) (R, error)

// Listener receives a copy of the load bookkeeping after every change.
// Listeners run on the loader's goroutines while it is locked, so they must not
// call back into the Loader.
type Listener func(attempt walkflow.LoadAttempt)

// Loader runs a parameterized load with bounded automatic retry.
//
// Every Trigger with new params bumps the params version. Completions and retry timers
// carry the version they were started for and are dropped once it is no longer current,
// so a superseded load can never overwrite the status of a newer one.
type Loader[P comparable, R any] struct {
	mu sync.Mutex

	load    LoadFunc[P, R]
	config  walkflow.LoaderConfig
	timeout time.Duration
	logger  zerolog.Logger

	attempt   walkflow.LoadAttempt
	params    P
	hasParams bool
	result    R

	// Only the current version owns these
	timer  *time.Timer
	cancel context.CancelFunc

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	closed    bool

	listeners []listenerEntry
	nextID    int
}

type listenerEntry struct {
	id int
	fn Listener
}

type options struct {
	name    string
	config  walkflow.LoaderConfig
	timeout *time.Duration
	logger  *zerolog.Logger
}

// Option configures a Loader
type Option func(*options)

// WithName sets the name attached to log lines
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithConfig replaces the whole retry policy
func WithConfig(config walkflow.LoaderConfig) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithRetries sets the number of automatic retries after the first attempt
func WithRetries(maxRetries int) Option {
	return func(o *options) {
		o.config.MaxRetries = maxRetries
	}
}

// WithRetryDelay sets the base delay before an automatic retry
func WithRetryDelay(delay time.Duration) Option {
	return func(o *options) {
		o.config.RetryDelayMs = int(delay.Milliseconds())
	}
}

// WithBackoff sets the retry backoff strategy
func WithBackoff(strategy walkflow.BackoffStrategy) Option {
	return func(o *options) {
		o.config.RetryBackoff = strategy
	}
}

// WithTimeout bounds each attempt; zero disables the timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = &timeout
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New creates an idle loader around load
func New[P comparable, R any](load LoadFunc[P, R], opts ...Option) *Loader[P, R] {
	o := &options{
		name:   "loader",
		config: walkflow.DefaultLoaderConfig,
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)
	if o.logger != nil {
		logger = *o.logger
	}

	timeout := o.config.Timeout()
	if o.timeout != nil {
		timeout = *o.timeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Loader[P, R]{
		load:    load,
		config:  o.config,
		timeout: timeout,
		logger:  walkflow.LoaderLogger(logger, o.name),
		attempt: walkflow.LoadAttempt{
			MaxAttempts: o.config.MaxRetries,
			Status:      walkflow.LoadStatusIdle,
		},
		ctx:       ctx,
		ctxCancel: cancel,
	}
}

// Trigger starts a load for params. Triggering the params already current does
// nothing and returns false; ManualRetry re-runs a failed load.
func (l *Loader[P, R]) Trigger(params P) bool {
	l.mu.Lock()
	if l.closed || (l.hasParams && l.params == params) {
		l.mu.Unlock()
		return false
	}

	l.params = params
	l.hasParams = true
	l.restartLocked()
	l.notifyAndUnlock()
	return true
}

// ManualRetry re-runs the current params after the automatic retries were exhausted
func (l *Loader[P, R]) ManualRetry() error {
	l.mu.Lock()
	if l.closed || l.attempt.Status != walkflow.LoadStatusFailed {
		state := l.attempt.Status.String()
		if l.closed {
			state = "CLOSED"
		}
		l.mu.Unlock()
		return walkflow.NewInvalidStateError("ManualRetry", state)
	}

	l.restartLocked()
	l.notifyAndUnlock()
	return nil
}

// Attempt returns a copy of the load bookkeeping
func (l *Loader[P, R]) Attempt() walkflow.LoadAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Status returns the current load status
func (l *Loader[P, R]) Status() walkflow.LoadStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempt.Status
}

// Params returns the params of the current load
func (l *Loader[P, R]) Params() (P, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params, l.hasParams
}

// Result returns the loaded value while the current load is successful
func (l *Loader[P, R]) Result() (R, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attempt.Status != walkflow.LoadStatusSuccess {
		var zero R
		return zero, false
	}
	return l.result, true
}

// Subscribe registers a listener and returns a func that removes it
func (l *Loader[P, R]) Subscribe(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.listeners = append(l.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, entry := range l.listeners {
			if entry.id == id {
				l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close stops pending retries, cancels the in-flight load and waits for the
// loader's goroutines to finish. Later calls do nothing.
func (l *Loader[P, R]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.stopLocked()
	l.ctxCancel()
	l.mu.Unlock()

	l.wg.Wait()
}

// restartLocked supersedes whatever is running and starts attempt 1 of a new version
func (l *Loader[P, R]) restartLocked() {
	l.stopLocked()

	var zero R
	l.result = zero
	l.attempt.ParamsVersion++
	l.attempt.AttemptCount = 0
	l.attempt.LastError = nil
	l.attempt.Status = walkflow.LoadStatusLoading

	l.startLocked(l.attempt.ParamsVersion)
}

// stopLocked cancels the pending retry timer and the in-flight load
func (l *Loader[P, R]) stopLocked() {
	if l.timer != nil {
		if l.timer.Stop() {
			// The callback will never run, release its slot
			l.wg.Done()
		}
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// startLocked runs one attempt for version in a goroutine
func (l *Loader[P, R]) startLocked(version uint64) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if l.timeout > 0 {
		ctx, cancel = context.WithTimeout(l.ctx, l.timeout)
	} else {
		ctx, cancel = context.WithCancel(l.ctx)
	}
	l.cancel = cancel

	params := l.params
	attemptNum := l.attempt.AttemptCount + 1
	walkflow.LogLoadStarted(l.logger, version, attemptNum)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()

		result, err := l.execute(ctx, params)
		l.complete(version, result, err)
	}()
}

// execute calls the load function (with panic recovery)
func (l *Loader[P, R]) execute(ctx context.Context, params P) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load panicked: %v", r)
			l.logger.Error().Interface("panic", r).Msg("Load panicked")
		}
	}()

	result, err = l.load(ctx, params)
	if err == nil && ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}
	return result, err
}

// complete applies a finished attempt if its version is still current
func (l *Loader[P, R]) complete(version uint64, result R, err error) {
	l.mu.Lock()
	if l.closed || version != l.attempt.ParamsVersion || l.attempt.Status != walkflow.LoadStatusLoading {
		walkflow.LogLoadStale(l.logger, version, l.attempt.ParamsVersion)
		l.mu.Unlock()
		return
	}
	l.cancel = nil

	if err == nil {
		attempts := l.attempt.AttemptCount + 1
		l.result = result
		l.attempt.Status = walkflow.LoadStatusSuccess
		l.attempt.AttemptCount = 0
		l.attempt.LastError = nil

		walkflow.LogLoadSucceeded(l.logger, version, attempts)
		l.notifyAndUnlock()
		return
	}

	if l.timeout > 0 && walkflow.IsTimeoutError(err) {
		err = fmt.Errorf("load timed out after %s: %w", l.timeout, err)
	}

	l.attempt.AttemptCount++
	l.attempt.LastError = walkflow.NewLoadError(err, l.attempt.AttemptCount)

	if l.attempt.AttemptCount <= l.config.MaxRetries {
		delay := walkflow.CalculateBackoff(l.config.RetryDelayMs, l.attempt.AttemptCount, l.config.RetryBackoff)
		walkflow.LogLoadRetrying(l.logger, version, l.attempt.AttemptCount, err)

		l.wg.Add(1)
		l.timer = time.AfterFunc(delay, func() {
			defer l.wg.Done()
			l.retry(version)
		})
	} else {
		l.attempt.Status = walkflow.LoadStatusFailed
		walkflow.LogLoadFailed(l.logger, version, l.attempt.AttemptCount, err)
	}

	l.notifyAndUnlock()
}

// retry fires from the backoff timer
func (l *Loader[P, R]) retry(version uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || version != l.attempt.ParamsVersion || l.timer == nil {
		walkflow.LogLoadStale(l.logger, version, l.attempt.ParamsVersion)
		return
	}
	l.timer = nil
	l.startLocked(version)
}

func (l *Loader[P, R]) snapshotLocked() walkflow.LoadAttempt {
	a := l.attempt
	if a.LastError != nil {
		errCopy := *a.LastError
		a.LastError = &errCopy
	}
	return a
}

// notifyAndUnlock delivers the current state to listeners, then releases mu
func (l *Loader[P, R]) notifyAndUnlock() {
	defer l.mu.Unlock()
	if len(l.listeners) == 0 {
		return
	}

	attempt := l.snapshotLocked()
	for _, entry := range l.listeners {
		entry.fn(attempt)
	}
}
