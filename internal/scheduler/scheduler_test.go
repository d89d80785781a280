package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/worker"
)

type fakeUsers struct {
	users []model.User
	err   error
}

func (f *fakeUsers) LoadVerified(ctx context.Context) ([]model.User, error) {
	return f.users, f.err
}

type fakeRunLog struct {
	begun    int
	finished []model.RunSummary
	beginErr error
}

func (f *fakeRunLog) Begin(ctx context.Context) (string, error) {
	f.begun++
	return "run-1", f.beginErr
}

func (f *fakeRunLog) Finish(ctx context.Context, s model.RunSummary) error {
	f.finished = append(f.finished, s)
	return nil
}

type fakeEvents struct {
	published []model.RunSummary
}

func (f *fakeEvents) PublishRunEvent(ctx context.Context, s model.RunSummary) {
	f.published = append(f.published, s)
}

type fakePipeline struct {
	processed []string
	counters  worker.Counters
	errFor    string
}

func (f *fakePipeline) ProcessUser(ctx context.Context, u *model.User) (worker.Counters, error) {
	f.processed = append(f.processed, u.ID)
	if u.ID == f.errFor {
		return worker.Counters{}, errors.New("pipeline boom")
	}
	return f.counters, nil
}

func newTestScheduler(users *fakeUsers, runs *fakeRunLog, events *fakeEvents, pipeline *fakePipeline) (*Scheduler, *[]time.Duration) {
	s := New(users, runs, events, pipeline, 30, 20*time.Second)
	var sleeps []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) {
		sleeps = append(sleeps, d)
	}
	return s, &sleeps
}

// ── RunOnce ────────────────────────────────────────────────────────────────

func TestRunOnce_ProcessesUsersSequentiallyWithDelay(t *testing.T) {
	users := &fakeUsers{users: []model.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}}
	runs := &fakeRunLog{}
	events := &fakeEvents{}
	pipeline := &fakePipeline{counters: worker.Counters{Applied: 2, Failed: 1}}

	s, sleeps := newTestScheduler(users, runs, events, pipeline)
	s.RunOnce(context.Background())

	want := []string{"u1", "u2", "u3"}
	if len(pipeline.processed) != len(want) {
		t.Fatalf("processed %d users, want %d", len(pipeline.processed), len(want))
	}
	for i, id := range want {
		if pipeline.processed[i] != id {
			t.Errorf("processed[%d] = %s, want %s (sequential order)", i, pipeline.processed[i], id)
		}
	}

	// Delay between users, not after the last one.
	if len(*sleeps) != 2 {
		t.Errorf("slept %d times, want 2", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != 20*time.Second {
			t.Errorf("sleep = %v, want the configured 20s", d)
		}
	}
}

func TestRunOnce_WritesAuditRowWithCounters(t *testing.T) {
	users := &fakeUsers{users: []model.User{{ID: "u1"}, {ID: "u2"}}}
	runs := &fakeRunLog{}
	events := &fakeEvents{}
	pipeline := &fakePipeline{counters: worker.Counters{Applied: 3, Failed: 1, Skipped: 2}}

	s, _ := newTestScheduler(users, runs, events, pipeline)
	s.RunOnce(context.Background())

	if runs.begun != 1 || len(runs.finished) != 1 {
		t.Fatalf("audit begun=%d finished=%d, want 1/1", runs.begun, len(runs.finished))
	}
	got := runs.finished[0]
	if got.RunID != "run-1" {
		t.Errorf("run id = %s, want run-1", got.RunID)
	}
	if got.UsersProcessed != 2 || got.Applied != 6 || got.Failed != 2 || got.Skipped != 4 {
		t.Errorf("summary = %+v, want aggregated counters over both users", got)
	}
	if len(events.published) != 1 {
		t.Errorf("published %d run events, want 1", len(events.published))
	}
}

func TestRunOnce_PipelineErrorDoesNotAbortOtherUsers(t *testing.T) {
	users := &fakeUsers{users: []model.User{{ID: "u1"}, {ID: "u2"}}}
	runs := &fakeRunLog{}
	events := &fakeEvents{}
	pipeline := &fakePipeline{errFor: "u1", counters: worker.Counters{Applied: 1}}

	s, _ := newTestScheduler(users, runs, events, pipeline)
	s.RunOnce(context.Background())

	if len(pipeline.processed) != 2 {
		t.Errorf("processed %d users, want both despite u1 failing", len(pipeline.processed))
	}
	got := runs.finished[0]
	if got.UsersProcessed != 1 || got.UsersSkipped != 1 {
		t.Errorf("summary = %+v, want processed=1 skipped=1", got)
	}
}

func TestRunOnce_LoadErrorAbortsTickCleanly(t *testing.T) {
	users := &fakeUsers{err: errors.New("db unreachable")}
	runs := &fakeRunLog{}
	events := &fakeEvents{}
	pipeline := &fakePipeline{}

	s, _ := newTestScheduler(users, runs, events, pipeline)
	s.RunOnce(context.Background())

	if len(pipeline.processed) != 0 {
		t.Error("no user should be processed when the load fails")
	}
	if len(runs.finished) != 1 {
		t.Fatalf("aborted tick must still close its audit row")
	}
	if runs.finished[0].Note == "" {
		t.Error("aborted tick should note the failure")
	}
}

func TestRunOnce_AuditBeginErrorSkipsTick(t *testing.T) {
	users := &fakeUsers{users: []model.User{{ID: "u1"}}}
	runs := &fakeRunLog{beginErr: errors.New("db unreachable")}
	events := &fakeEvents{}
	pipeline := &fakePipeline{}

	s, _ := newTestScheduler(users, runs, events, pipeline)
	s.RunOnce(context.Background())

	if len(pipeline.processed) != 0 {
		t.Error("tick must abort when the audit row cannot be opened")
	}
}

func TestRunOnce_CancelledContextStopsIteration(t *testing.T) {
	users := &fakeUsers{users: []model.User{{ID: "u1"}, {ID: "u2"}}}
	runs := &fakeRunLog{}
	events := &fakeEvents{}
	pipeline := &fakePipeline{}

	s, _ := newTestScheduler(users, runs, events, pipeline)
	ctx, cancel := context.WithCancel(context.Background())
	s.sleep = func(ctx context.Context, d time.Duration) { cancel() }
	s.RunOnce(ctx)

	if len(pipeline.processed) != 1 {
		t.Errorf("processed %d users after cancel, want 1", len(pipeline.processed))
	}
	if runs.finished[0].Note == "" {
		t.Error("interrupted tick should note the shutdown")
	}
}
