package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func staticChecker(name string, result Result) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		return result
	})
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", staticChecker("store", Healthy("ok")))
	agg.Register("heap", staticChecker("heap", Degraded("growing")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results, want 2", len(results))
	}
	if results["store"].Status != StatusHealthy {
		t.Errorf("store status = %v, want StatusHealthy", results["store"].Status)
	}
	if results["heap"].Status != StatusDegraded {
		t.Errorf("heap status = %v, want StatusDegraded", results["heap"].Status)
	}
	if results["store"].Duration <= 0 {
		t.Error("CheckAll() should record check duration")
	}
}

func TestAggregator_Check(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", staticChecker("store", Healthy("ok")))

	result, err := agg.Check(context.Background(), "store")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("Check().Status = %v, want StatusHealthy", result.Status)
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator()

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{
			"degraded dominates healthy",
			map[string]Result{"a": Healthy(""), "b": Degraded("")},
			StatusDegraded,
		},
		{
			"unhealthy dominates all",
			map[string]Result{"a": Healthy(""), "b": Degraded(""), "c": Unhealthy("", nil)},
			StatusUnhealthy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_CheckerNames(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", staticChecker("store", Healthy("")))
	agg.Register("heap", staticChecker("heap", Healthy("")))
	agg.Register("store", staticChecker("store", Healthy(""))) // re-register keeps order

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "store" || names[1] != "heap" {
		t.Errorf("CheckerNames() = %v, want [store heap]", names)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 10 * time.Millisecond})
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("too late")
	}))

	results := agg.CheckAll(context.Background())
	result := results["stuck"]
	if result.Status != StatusUnhealthy {
		t.Errorf("stuck status = %v, want StatusUnhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("stuck error = %v, want ErrCheckTimeout", result.Error)
	}
}
