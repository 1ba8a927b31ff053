package store

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Counters on the session hot path, labeled per driver. Exposed through
// metrics.WritePrometheus by whoever serves /metrics.
func documentsCreated(driver string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`livedoc_documents_created_total{driver=%q}`, driver))
}

func documentsRemoved(driver string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`livedoc_documents_removed_total{driver=%q}`, driver))
}

func mutationsPersisted(driver string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`livedoc_mutations_persisted_total{driver=%q}`, driver))
}

func mutationsSkipped(driver string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`livedoc_mutations_skipped_total{driver=%q}`, driver))
}
