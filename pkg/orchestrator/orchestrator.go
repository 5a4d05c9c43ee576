// Package orchestrator owns the plan-request lifecycle: initialize, advance
// one week at a time, report status. Progress is driven entirely by repeated
// client calls; there is no background work. State is persisted after every
// transition, so a page reload or crash resumes exactly where it left off.
//
// Concurrency: advances for the same request ID are serialized through an
// in-process keyed lock around the read-modify-write. This assumes a single
// service instance owns a request for its lifetime; a multi-instance
// deployment would need the lock moved into the store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trainplan/pkg/archive"
	"trainplan/pkg/generator"
	"trainplan/pkg/logx"
	"trainplan/pkg/mail"
	"trainplan/pkg/plan"
	"trainplan/pkg/store"
)

// DefaultTTL is the retention window for a plan record, refreshed on every
// write. Expiry is resource-bound eviction, not application-level deletion.
const DefaultTTL = time.Hour

// keyPrefix namespaces plan records in the shared store.
const keyPrefix = "plan:"

// emailTimeout bounds the completion email send.
const emailTimeout = 10 * time.Second

// WeekGenerator produces the training text for one week chunk.
type WeekGenerator interface {
	GenerateWeek(ctx context.Context, in generator.WeekInput) (string, error)
}

// Recorder receives lifecycle observations. Implemented by pkg/metrics.
type Recorder interface {
	RecordPlanCompleted()
	RecordEmail(success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordPlanCompleted() {}
func (nopRecorder) RecordEmail(bool)     {}

// InitializeInput carries the validated form fields for a new plan request.
type InitializeInput struct {
	RaceDate       time.Time
	GoalTime       plan.GoalTime
	CurrentMileage float64
	Email          string
}

// Orchestrator is the request state machine. All dependencies are injected;
// there is no package-level client state.
type Orchestrator struct {
	store    store.Store
	gen      WeekGenerator
	sender   mail.Sender      // nil disables the completion email
	arch     *archive.Archive // nil disables archiving
	recorder Recorder
	ttl      time.Duration
	locks    *keyedLocks
	logger   *logx.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSender sets the completion email sender.
func WithSender(s mail.Sender) Option {
	return func(o *Orchestrator) { o.sender = s }
}

// WithArchive sets the completed-plan archive.
func WithArchive(a *archive.Archive) Option {
	return func(o *Orchestrator) { o.arch = a }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithTTL overrides the record retention window.
func WithTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.ttl = ttl }
}

// withClock overrides time for tests.
func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator over the given store and generator.
func New(st store.Store, gen WeekGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		gen:      gen,
		recorder: nopRecorder{},
		ttl:      DefaultTTL,
		locks:    newKeyedLocks(),
		logger:   logx.NewLogger("orchestrator"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize validates the form inputs, computes the week count, and writes a
// fresh request record. Nothing is written when validation fails.
func (o *Orchestrator) Initialize(ctx context.Context, in InitializeInput) (*plan.Request, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	today := plan.NormalizeDate(o.now())
	totalWeeks, err := plan.TotalWeeks(today, in.RaceDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	req := &plan.Request{
		ID:             o.newID(),
		Status:         plan.StatusInitialized,
		Email:          in.Email,
		RaceDate:       plan.NormalizeDate(in.RaceDate),
		GoalTime:       in.GoalTime,
		CurrentMileage: in.CurrentMileage,
		TotalWeeks:     totalWeeks,
		CurrentWeek:    0,
		Weeks:          make(map[int]string),
		StartTime:      today,
	}

	if err := o.persist(ctx, req); err != nil {
		return nil, err
	}

	o.logger.Info("initialized request %s: %d weeks to race on %s",
		req.ID, totalWeeks, req.RaceDate.Format("2006-01-02"))
	return req, nil
}

// AdvanceWeek generates exactly one week and merges it into the request
// state. Week numbers must advance strictly: only currentWeek+1 is accepted,
// so duplicate, skipped, and out-of-order advances are client errors rather
// than silent overwrites.
//
// On a generation failure the request is marked errored and the failure is
// returned; the client may re-attempt the same week number, which resumes the
// request without losing completed weeks. A completed request rejects all
// further advances.
func (o *Orchestrator) AdvanceWeek(ctx context.Context, requestID string, weekNumber int) (*plan.Request, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: requestId is required", ErrValidation)
	}
	if weekNumber < 1 {
		return nil, fmt.Errorf("%w: weekNumber must be at least 1", ErrValidation)
	}

	release := o.locks.acquire(requestID)
	defer release()

	req, err := o.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status == plan.StatusCompleted {
		return req, fmt.Errorf("%w: plan already completed", ErrStateConflict)
	}
	if weekNumber != req.CurrentWeek+1 {
		return req, fmt.Errorf("%w: expected week %d, got %d", ErrStateConflict, req.CurrentWeek+1, weekNumber)
	}

	start, end, err := plan.WeekChunk(req.StartTime, req.RaceDate, weekNumber)
	if err != nil {
		if errors.Is(err, plan.ErrWeekBeyondRace) {
			return req, fmt.Errorf("%w: %v", ErrStateConflict, err)
		}
		return req, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if req.Status == plan.StatusError {
		o.logger.Info("request %s retrying week %d after previous failure", requestID, weekNumber)
	}

	text, err := o.gen.GenerateWeek(ctx, generator.WeekInput{
		Week:           weekNumber,
		TotalWeeks:     req.TotalWeeks,
		ChunkStart:     start,
		ChunkEnd:       end,
		GoalTime:       req.GoalTime,
		CurrentMileage: req.CurrentMileage,
	})
	if err != nil {
		req.Status = plan.StatusError
		req.Error = err.Error()
		if persistErr := o.persist(ctx, req); persistErr != nil {
			o.logger.Error("failed to persist error state for %s: %v", requestID, persistErr)
		}
		return req, err
	}

	req.Weeks[weekNumber] = text
	req.CurrentWeek = weekNumber
	req.Error = ""
	if weekNumber == req.TotalWeeks {
		req.Status = plan.StatusCompleted
	} else {
		req.Status = plan.StatusInProgress
	}

	if err := o.persist(ctx, req); err != nil {
		return nil, err
	}

	if req.Status == plan.StatusCompleted {
		o.recorder.RecordPlanCompleted()
		o.finishPlan(ctx, req)
	}

	return req, nil
}

// GetStatus returns the full state projection for a request, with no mutation
// and no TTL refresh.
func (o *Orchestrator) GetStatus(ctx context.Context, requestID string) (*plan.Request, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: requestId is required", ErrValidation)
	}
	return o.load(ctx, requestID)
}

// GetArchived returns the archived copy of a completed plan. Archived plans
// outlive the store's retention window, so this is the lookup of record once
// the live request has expired.
func (o *Orchestrator) GetArchived(ctx context.Context, requestID string) (*archive.Entry, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: requestId is required", ErrValidation)
	}
	if o.arch == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	entry, err := o.arch.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
		}
		return nil, err
	}
	return entry, nil
}

// finishPlan runs the one-time completion side effects: archive the plan and
// email it to the runner. Both are best-effort; the plan is already durably
// stored and retrievable via GetStatus regardless.
func (o *Orchestrator) finishPlan(ctx context.Context, req *plan.Request) {
	if o.arch != nil {
		if err := o.arch.SaveCompleted(ctx, req); err != nil {
			o.logger.Warn("failed to archive completed plan %s: %v", req.ID, err)
		}
	}

	if o.sender == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
	defer cancel()

	body := mail.RenderPlanHTML(req.FullText())
	if err := o.sender.Send(sendCtx, req.Email, mail.PlanSubject, body); err != nil {
		// Notification failure: logged, never reverts completion.
		o.recorder.RecordEmail(false)
		o.logger.Warn("completion email for %s failed: %v", req.ID, err)
		return
	}
	o.recorder.RecordEmail(true)
	o.logger.Info("completion email for %s sent to %s", req.ID, req.Email)
}

func (o *Orchestrator) load(ctx context.Context, requestID string) (*plan.Request, error) {
	data, err := o.store.Get(ctx, keyPrefix+requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to load plan request %s: %w", requestID, err)
	}
	return plan.Decode(data)
}

func (o *Orchestrator) persist(ctx context.Context, req *plan.Request) error {
	data, err := req.Encode()
	if err != nil {
		return err
	}
	if err := o.store.Put(ctx, keyPrefix+req.ID, data, o.ttl); err != nil {
		return fmt.Errorf("failed to persist plan request %s: %w", req.ID, err)
	}
	return nil
}

func validateInput(in InitializeInput) error {
	if in.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: email %q is not a valid address", ErrValidation, in.Email)
	}
	if in.RaceDate.IsZero() {
		return fmt.Errorf("%w: raceDate is required", ErrValidation)
	}
	if err := in.GoalTime.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.CurrentMileage < 0 {
		return fmt.Errorf("%w: currentMileage cannot be negative", ErrValidation)
	}
	return nil
}
