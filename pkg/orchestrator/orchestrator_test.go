package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainplan/pkg/archive"
	"trainplan/pkg/generator"
	"trainplan/pkg/plan"
	"trainplan/pkg/store"
)

// stubGen is a controllable WeekGenerator.
type stubGen struct {
	fn    func(ctx context.Context, in generator.WeekInput) (string, error)
	calls []generator.WeekInput
	mu    sync.Mutex
}

func (s *stubGen) GenerateWeek(ctx context.Context, in generator.WeekInput) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, in)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, in)
	}
	return fmt.Sprintf("plan for week %d", in.Week), nil
}

// recordingSender captures completion email sends.
type recordingSender struct {
	mu    sync.Mutex
	sends []sentMail
	err   error
}

type sentMail struct {
	to, subject, body string
}

func (r *recordingSender) Send(_ context.Context, to, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sends = append(r.sends, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

var testToday = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, gen WeekGenerator, extra ...Option) (*Orchestrator, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	opts := append([]Option{
		WithSender(sender),
		withClock(func() time.Time { return testToday }),
	}, extra...)
	return New(store.NewMemoryStore(), gen, opts...), sender
}

func validInput() InitializeInput {
	return InitializeInput{
		RaceDate:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		GoalTime:       plan.GoalTime{Hours: 3, Minutes: 30},
		CurrentMileage: 25,
		Email:          "runner@example.com",
	}
}

func TestInitialize(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubGen{})

	req, err := orch.Initialize(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, plan.StatusInitialized, req.Status)
	assert.Equal(t, 5, req.TotalWeeks) // 31 days -> ceil(31/7)
	assert.Equal(t, 0, req.CurrentWeek)
	assert.Empty(t, req.Weeks)

	// Round trip through the store.
	loaded, err := orch.GetStatus(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusInitialized, loaded.Status)
	assert.Equal(t, 0, loaded.CurrentWeek)
	assert.Empty(t, loaded.Weeks)
}

func TestInitializeValidation(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubGen{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*InitializeInput)
	}{
		{"race date today", func(in *InitializeInput) { in.RaceDate = testToday }},
		{"race date in the past", func(in *InitializeInput) { in.RaceDate = testToday.AddDate(0, -1, 0) }},
		{"race date missing", func(in *InitializeInput) { in.RaceDate = time.Time{} }},
		{"email missing", func(in *InitializeInput) { in.Email = "" }},
		{"email malformed", func(in *InitializeInput) { in.Email = "not-an-address" }},
		{"goal time zero", func(in *InitializeInput) { in.GoalTime = plan.GoalTime{} }},
		{"negative mileage", func(in *InitializeInput) { in.CurrentMileage = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := orch.Initialize(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestInitializeAcceptsTomorrowRace(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubGen{})

	in := validInput()
	in.RaceDate = testToday.AddDate(0, 0, 1)

	req, err := orch.Initialize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, req.TotalWeeks)
}

func TestAdvanceThroughCompletion(t *testing.T) {
	gen := &stubGen{}
	orch, sender := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, validInput())
	require.NoError(t, err)

	for week := 1; week <= req.TotalWeeks; week++ {
		updated, advErr := orch.AdvanceWeek(ctx, req.ID, week)
		require.NoError(t, advErr, "week %d", week)
		assert.Equal(t, week, updated.CurrentWeek)
		assert.Equal(t, fmt.Sprintf("plan for week %d", week), updated.Weeks[week])

		if week < req.TotalWeeks {
			assert.Equal(t, plan.StatusInProgress, updated.Status)
		} else {
			assert.Equal(t, plan.StatusCompleted, updated.Status)
		}
	}

	// No gaps: weeks 1..totalWeeks all present.
	final, err := orch.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, final.Weeks, req.TotalWeeks)
	for week := 1; week <= req.TotalWeeks; week++ {
		assert.Contains(t, final.Weeks, week)
	}

	// Exactly one email, all weeks concatenated in ascending order.
	require.Len(t, sender.sends, 1)
	sent := sender.sends[0]
	assert.Equal(t, "runner@example.com", sent.to)
	last := -1
	for week := 1; week <= req.TotalWeeks; week++ {
		idx := strings.Index(sent.body, fmt.Sprintf("plan for week %d", week))
		require.GreaterOrEqual(t, idx, 0, "week %d missing from email", week)
		assert.Greater(t, idx, last, "week %d out of order in email", week)
		last = idx
	}
}

func TestAdvanceStrictOrdering(t *testing.T) {
	gen := &stubGen{}
	orch, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, validInput())
	require.NoError(t, err)

	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)

	// Skipping week 2 is rejected and state is unchanged.
	_, err = orch.AdvanceWeek(ctx, req.ID, 3)
	assert.ErrorIs(t, err, ErrStateConflict)

	// Duplicate advance of a completed week is rejected too.
	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	assert.ErrorIs(t, err, ErrStateConflict)

	current, err := orch.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.CurrentWeek)
	assert.Len(t, current.Weeks, 1)
}

func TestAdvanceAfterCompletedIsRejected(t *testing.T) {
	in := validInput()
	in.RaceDate = testToday.AddDate(0, 0, 7) // single week

	gen := &stubGen{}
	orch, sender := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 1, req.TotalWeeks)

	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)

	rejected, err := orch.AdvanceWeek(ctx, req.ID, 2)
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.Equal(t, plan.StatusCompleted, rejected.Status)
	assert.Equal(t, 1, rejected.CurrentWeek)
	assert.Len(t, rejected.Weeks, 1)

	// Completion side effects ran exactly once.
	assert.Len(t, sender.sends, 1)
	assert.Len(t, gen.calls, 1)
}

func TestGenerationFailureMarksError(t *testing.T) {
	gen := &stubGen{fn: func(_ context.Context, in generator.WeekInput) (string, error) {
		if in.Week == 2 {
			return "", &generator.GenerationError{Kind: generator.KindBackend, Week: 2, Err: errors.New("backend exploded")}
		}
		return fmt.Sprintf("plan for week %d", in.Week), nil
	}}

	in := validInput()
	in.RaceDate = testToday.AddDate(0, 0, 21) // 3 weeks

	orch, sender := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 3, req.TotalWeeks)

	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)

	_, err = orch.AdvanceWeek(ctx, req.ID, 2)
	var genErr *generator.GenerationError
	require.ErrorAs(t, err, &genErr)

	errored, err := orch.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusError, errored.Status)
	assert.Equal(t, 1, errored.CurrentWeek)
	assert.Len(t, errored.Weeks, 1)
	assert.Contains(t, errored.Error, "backend exploded")
	assert.Empty(t, sender.sends)
}

func TestRetrySameWeekAfterError(t *testing.T) {
	fail := true
	gen := &stubGen{fn: func(_ context.Context, in generator.WeekInput) (string, error) {
		if in.Week == 2 && fail {
			return "", &generator.GenerationError{Kind: generator.KindBackend, Week: 2, Err: errors.New("flaky")}
		}
		return fmt.Sprintf("plan for week %d", in.Week), nil
	}}

	in := validInput()
	in.RaceDate = testToday.AddDate(0, 0, 21)

	orch, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, in)
	require.NoError(t, err)

	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)
	_, err = orch.AdvanceWeek(ctx, req.ID, 2)
	require.Error(t, err)

	// Re-attempting a different week while errored is still a conflict.
	_, err = orch.AdvanceWeek(ctx, req.ID, 3)
	assert.ErrorIs(t, err, ErrStateConflict)

	// Re-attempting the failed week resumes without losing week 1.
	fail = false
	updated, err := orch.AdvanceWeek(ctx, req.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusInProgress, updated.Status)
	assert.Equal(t, 2, updated.CurrentWeek)
	assert.Empty(t, updated.Error)
	assert.Equal(t, "plan for week 1", updated.Weeks[1])
}

func TestGetArchivedAfterCompletion(t *testing.T) {
	arch, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = arch.Close() })

	in := validInput()
	in.RaceDate = testToday.AddDate(0, 0, 7)

	orch, _ := newTestOrchestrator(t, &stubGen{}, WithArchive(arch))
	ctx := context.Background()

	req, err := orch.Initialize(ctx, in)
	require.NoError(t, err)
	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)

	entry, err := orch.GetArchived(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, entry.RequestID)
	assert.Equal(t, "runner@example.com", entry.Email)
	assert.Equal(t, "plan for week 1", entry.PlanText)

	_, err = orch.GetArchived(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetArchivedWithoutArchive(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubGen{})

	_, err := orch.GetArchived(context.Background(), "any-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceUnknownRequest(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubGen{})

	_, err := orch.AdvanceWeek(context.Background(), "no-such-id", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = orch.GetStatus(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmailFailureDoesNotRevertCompletion(t *testing.T) {
	in := validInput()
	in.RaceDate = testToday.AddDate(0, 0, 7)

	gen := &stubGen{}
	orch, sender := newTestOrchestrator(t, gen)
	sender.err = errors.New("smtp on fire")
	ctx := context.Background()

	req, err := orch.Initialize(ctx, in)
	require.NoError(t, err)

	updated, err := orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, updated.Status)

	// Plan remains retrievable despite the notification failure.
	final, err := orch.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, final.Status)
}

func TestGeneratorReceivesChunkDates(t *testing.T) {
	gen := &stubGen{}
	orch, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, validInput())
	require.NoError(t, err)

	_, err = orch.AdvanceWeek(ctx, req.ID, 1)
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Equal(t, 1, call.Week)
	assert.Equal(t, 5, call.TotalWeeks)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), call.ChunkStart)
	assert.Equal(t, time.Date(2025, 5, 7, 0, 0, 0, 0, time.UTC), call.ChunkEnd)
	assert.Equal(t, 25.0, call.CurrentMileage)
}

func TestConcurrentAdvancesAreSerialized(t *testing.T) {
	var inFlight, maxInFlight int
	var mu sync.Mutex

	gen := &stubGen{fn: func(_ context.Context, in generator.WeekInput) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return fmt.Sprintf("plan for week %d", in.Week), nil
	}}

	orch, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	req, err := orch.Initialize(ctx, validInput())
	require.NoError(t, err)

	// Hammer the same week from several goroutines; the keyed lock must let
	// exactly one generation happen and reject the rest as conflicts.
	var wg sync.WaitGroup
	successes := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, advErr := orch.AdvanceWeek(ctx, req.ID, 1); advErr == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, maxInFlight, "advances for one request overlapped")

	final, err := orch.GetStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, final.CurrentWeek)
	assert.Len(t, final.Weeks, 1)
}
