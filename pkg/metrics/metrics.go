package metrics

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewContext attaches the New Relic application to ctx so that background
// workers can start transactions and record metrics.
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	return context.WithValue(ctx, newRelicContextKey{}, app)
}

// FromContext returns the New Relic application attached to ctx, if any.
func FromContext(ctx context.Context) *newrelic.Application {
	app, _ := ctx.Value(newRelicContextKey{}).(*newrelic.Application)
	return app
}

// StartTransaction starts a New Relic transaction named name and returns a
// context carrying it. The returned end func must be called once the unit of
// work completes. Without an application both are no-ops.
func StartTransaction(ctx context.Context, name string) (context.Context, *newrelic.Transaction, func()) {
	app := FromContext(ctx)
	if app == nil {
		return ctx, nil, func() {}
	}

	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn, txn.End
}

// RecordCount records a count metric
func RecordCount(ctx context.Context, metricName string, count uint64) {
	if app := FromContext(ctx); app != nil {
		app.RecordCustomMetric(metricName, float64(count))
	}
}

// RecordDuration records a duration metric
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if app := FromContext(ctx); app != nil {
		app.RecordCustomMetric(metricName, float64(duration/time.Millisecond))
	}
}

// RecordEvent records a new event with a name and set of key-value pairs
func RecordEvent(ctx context.Context, eventName string, kvPairs map[string]interface{}) {
	if app := FromContext(ctx); app != nil {
		app.RecordCustomEvent(eventName, kvPairs)
	}
}
