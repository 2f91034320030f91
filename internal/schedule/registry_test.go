package schedule

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobsInOrder(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(nil)
	registry.Register(jobB)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRunGuardIsExclusive(t *testing.T) {
	guard := NewRunGuard()
	ctx := context.Background()

	acquired, err := guard.Acquire(ctx)
	if err != nil || !acquired {
		t.Fatalf("first acquire = %v, %v", acquired, err)
	}

	acquired, err = guard.Acquire(ctx)
	if err != nil || acquired {
		t.Fatalf("second acquire = %v, %v, want held", acquired, err)
	}

	if err := guard.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	acquired, err = guard.Acquire(ctx)
	if err != nil || !acquired {
		t.Fatalf("acquire after release = %v, %v", acquired, err)
	}
}
