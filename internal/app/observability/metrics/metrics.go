package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	BackendRequestsTotal     metric.Int64Counter
	BackendRequestDuration   metric.Float64Histogram
	PlaceSearchesTotal       metric.Int64Counter
	PlaceSearchDuration      metric.Float64Histogram
	PlaceCategoryErrorsTotal metric.Int64Counter
	StaleSearchResultsTotal  metric.Int64Counter
	CheckInsTotal            metric.Int64Counter
	FavoritesMutationsTotal  metric.Int64Counter
	PresenceRefreshesTotal   metric.Int64Counter
	CompanionRequestsTotal   metric.Int64Counter
	CompanionRequestDuration metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once from the global MeterProvider.
// Call it after the provider is installed; before that the global provider is
// a no-op and the instruments record nothing.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-nightout")
		m := &AppMetrics{}

		m.BackendRequestsTotal = mustCounter(meter, "backend_requests_total",
			"Total number of backend API requests", "{request}")
		m.BackendRequestDuration = mustHistogram(meter, "backend_request_duration_seconds",
			"Duration of backend API requests in seconds")
		m.PlaceSearchesTotal = mustCounter(meter, "place_searches_total",
			"Total number of place searches", "{search}")
		m.PlaceSearchDuration = mustHistogram(meter, "place_search_duration_seconds",
			"Duration of merged place searches in seconds")
		m.PlaceCategoryErrorsTotal = mustCounter(meter, "place_category_errors_total",
			"Per-category place queries that failed and were skipped", "{error}")
		m.StaleSearchResultsTotal = mustCounter(meter, "stale_search_results_total",
			"Search results discarded because a newer search was issued", "{result}")
		m.CheckInsTotal = mustCounter(meter, "checkins_total",
			"Check-in and check-out attempts", "{attempt}")
		m.FavoritesMutationsTotal = mustCounter(meter, "favorites_mutations_total",
			"Favorite add/remove attempts", "{mutation}")
		m.PresenceRefreshesTotal = mustCounter(meter, "presence_refreshes_total",
			"Nearby-user presence refreshes", "{refresh}")
		m.CompanionRequestsTotal = mustCounter(meter, "companion_requests_total",
			"Requests served by the companion API", "{request}")
		m.CompanionRequestDuration = mustHistogram(meter, "companion_request_duration_seconds",
			"Duration of companion API requests in seconds")

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the instruments, initialising them against the current global
// provider on first use.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}

func mustCounter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

func mustHistogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return h
}
