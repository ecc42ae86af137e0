package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultPacing = 10 * time.Millisecond

var (
	ErrEmptyPayload       = errors.New("nothing to print")
	ErrDeliveryInProgress = errors.New("a print job is already being delivered")
	ErrNoTransports       = errors.New("no printer transports configured")
)

// Attempt is the outcome of trying one transport within a job.
type Attempt struct {
	Transport  string `json:"transport"`
	ChunksSent int    `json:"chunks_sent"`
	Err        error  `json:"-"`
}

func (a Attempt) String() string {
	if a.Err == nil {
		return a.Transport + ": ok"
	}
	var cerr *ConnectError
	var terr *TransferError
	switch {
	case errors.Is(a.Err, ErrTransportUnavailable):
		return a.Transport + ": not available"
	case errors.As(a.Err, &cerr):
		return fmt.Sprintf("%s: connect failed: %v", a.Transport, cerr.Err)
	case errors.As(a.Err, &terr):
		return fmt.Sprintf("%s: write failed after %d chunks: %v", a.Transport, a.ChunksSent, terr.Err)
	}
	return fmt.Sprintf("%s: %v", a.Transport, a.Err)
}

// DeliveryError is returned once every transport has been tried.
type DeliveryError struct {
	Attempts []Attempt
}

func (e *DeliveryError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.String())
	}
	return "print failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes each attempt's error to errors.Is and errors.As.
func (e *DeliveryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Job records one Deliver call.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Bytes     int       `json:"bytes"`
	Transport string    `json:"transport,omitempty"`
	Chunks    int       `json:"chunks"`
	Attempts  []Attempt `json:"attempts"`
	Delivered bool      `json:"delivered"`
}

// Orchestrator sends a payload through the first transport that takes all
// of it. Transports are tried in the order given, each at most once per
// Deliver.
type Orchestrator struct {
	transports []Transport
	pacing     time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     logrus.FieldLogger

	inFlight sync.Mutex
}

type Option func(*Orchestrator)

func WithPacing(d time.Duration) Option {
	return func(o *Orchestrator) { o.pacing = d }
}

// WithSleeper replaces the pacing wait, mainly for tests.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator takes transports in priority order.
func NewOrchestrator(transports []Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transports: transports,
		pacing:     DefaultPacing,
		sleep:      sleepCtx,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deliver prints payload. A failed transport is never retried within the
// call; a new call starts again from the first transport. Concurrent calls
// get ErrDeliveryInProgress.
func (o *Orchestrator) Deliver(ctx context.Context, payload []byte) (*Job, error) {
	if !o.inFlight.TryLock() {
		return nil, ErrDeliveryInProgress
	}
	defer o.inFlight.Unlock()

	job := &Job{ID: uuid.New(), Bytes: len(payload)}
	log := o.logger.WithFields(logrus.Fields{"job_id": job.ID.String(), "bytes": len(payload)})

	if len(payload) == 0 {
		return job, ErrEmptyPayload
	}
	if len(o.transports) == 0 {
		return job, ErrNoTransports
	}

	for _, t := range o.transports {
		if err := ctx.Err(); err != nil {
			return job, err
		}
		attempt := o.try(ctx, t, payload, log)
		job.Attempts = append(job.Attempts, attempt)
		if attempt.Err == nil {
			job.Transport = t.Name()
			job.Chunks = attempt.ChunksSent
			job.Delivered = true
			log.WithFields(logrus.Fields{"transport": job.Transport, "chunks": job.Chunks}).Info("receipt printed")
			return job, nil
		}
		if ctx.Err() != nil {
			return job, ctx.Err()
		}
	}

	derr := &DeliveryError{Attempts: job.Attempts}
	log.WithError(derr).Warn("receipt not printed")
	return job, derr
}

func (o *Orchestrator) try(ctx context.Context, t Transport, payload []byte, log logrus.FieldLogger) Attempt {
	attempt := Attempt{Transport: t.Name()}
	log = log.WithField("transport", t.Name())

	if !t.Available() {
		log.Debug("transport skipped: not available")
		attempt.Err = ErrTransportUnavailable
		return attempt
	}
	if err := t.Connect(ctx); err != nil {
		log.WithError(err).Warn("transport connect failed")
		attempt.Err = err
		return attempt
	}

	chunks, err := Chunk(payload, t.MaxChunkSize())
	if err != nil {
		attempt.Err = err
		return attempt
	}
	for i, c := range chunks {
		if i > 0 {
			if err := o.sleep(ctx, o.pacing); err != nil {
				attempt.Err = err
				return attempt
			}
		}
		if err := t.SendChunk(ctx, c); err != nil {
			log.WithError(err).WithField("chunk", i).Warn("transport write failed")
			attempt.Err = err
			return attempt
		}
		attempt.ChunksSent++
	}
	return attempt
}

// Close releases every transport link.
func (o *Orchestrator) Close() error {
	var errs []error
	for _, t := range o.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}
