package health_test

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/jonwraymond/respcache/health"
	"github.com/jonwraymond/respcache/store"
)

func ExampleNewStoreChecker() {
	checker := health.NewStoreChecker(store.NewMemoryStore())

	result := checker.Check(context.Background())

	fmt.Println("Checker name:", checker.Name())
	fmt.Println("Status:", result.Status.String())
	// Output:
	// Checker name: store
	// Status: healthy
}

func ExampleNewCheckerFunc() {
	checker := health.NewCheckerFunc("scheduler", func(ctx context.Context) health.Result {
		return health.Healthy("workers idle")
	})

	result := checker.Check(context.Background())

	fmt.Println("Status:", result.Status.String())
	fmt.Println("Message:", result.Message)
	// Output:
	// Status: healthy
	// Message: workers idle
}

func ExampleAggregator_CheckAll() {
	agg := health.NewAggregator()
	agg.Register("store", health.NewStoreChecker(store.NewMemoryStore()))
	agg.Register("heap", health.NewHeapChecker())

	results := agg.CheckAll(context.Background())

	fmt.Println("Number of results:", len(results))
	fmt.Println("Overall:", agg.OverallStatus(results).String())
	// Output:
	// Number of results: 2
	// Overall: healthy
}

func ExampleReadinessHandler() {
	agg := health.NewAggregator()
	agg.Register("store", health.NewStoreChecker(store.NewMemoryStore()))

	rec := httptest.NewRecorder()
	health.ReadinessHandler(agg)(rec, httptest.NewRequest("GET", "/readyz", nil))

	fmt.Println("Status code:", rec.Code)
	fmt.Println("Body:", rec.Body.String())
	// Output:
	// Status code: 200
	// Body: OK
}
