package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	layoutLabel = "layout"
	resultLabel = "result"

	lookupFound    = "found"
	lookupNotFound = "not_found"
	lookupCoverage = "coverage_error"
)

var (
	skymapTractCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skymap_tracts",
		Help: "The number of tracts of the last built sky map.",
	}, []string{layoutLabel})

	skymapBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skymap_build_duration_seconds",
		Help:    "The time taken to build a sky map.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{layoutLabel})

	skymapTractLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skymap_tract_lookups",
		Help: "The number of tract lookups.",
	}, []string{layoutLabel, resultLabel})

	skymapCoverageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skymap_coverage_errors",
		Help: "The number of coordinates that no tract covers on a layout that covers the whole sky.",
	}, []string{layoutLabel})
)

func instrumentBuild(layout string, tracts int, d time.Duration) {
	skymapTractCount.
		With(prometheus.Labels{layoutLabel: layout}).
		Set(float64(tracts))

	skymapBuildDuration.
		With(prometheus.Labels{layoutLabel: layout}).
		Observe(d.Seconds())
}

func instrumentTractLookup(layout string, result string) {
	skymapTractLookups.
		With(prometheus.Labels{
			layoutLabel: layout,
			resultLabel: result,
		}).
		Inc()
}

func instrumentCoverageError(layout string) {
	skymapCoverageErrors.
		With(prometheus.Labels{layoutLabel: layout}).
		Inc()
}
