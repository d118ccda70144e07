package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultLabel = "result"

var lookupCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_lookup_cache",
	Help: "The number of tract lookups served with or without the cache.",
}, []string{
	resultLabel,
})

func instrumentLookupCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	lookupCache.With(prometheus.Labels{
		resultLabel: result,
	}).Inc()
}
