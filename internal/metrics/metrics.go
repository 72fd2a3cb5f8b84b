package metrics

import (
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    scansTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagemerge",
            Name:      "scans_total",
            Help:      "Folder scans by result (ok, not_found, cancelled)",
        },
        []string{"result"},
    )

    filesSkipped = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "pagemerge",
            Name:      "scan_files_skipped_total",
            Help:      "PDF files skipped during scans because they could not be read or parsed",
        },
    )

    catalogPages = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pagemerge",
            Name:      "catalog_pages",
            Help:      "Pages in the most recently scanned catalog",
        },
    )

    selectionSize = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pagemerge",
            Name:      "selection_pages",
            Help:      "Pages currently in the selection list",
        },
    )

    mergesTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagemerge",
            Name:      "merges_total",
            Help:      "Merges by result (success, read_failure, write_failure, cancelled, error)",
        },
        []string{"result"},
    )

    mergeLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "pagemerge",
            Name:      "merge_duration_seconds",
            Help:      "Duration of merges",
            Buckets:   prometheus.DefBuckets,
        },
    )

    pagesWritten = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "pagemerge",
            Name:      "pages_written_total",
            Help:      "Pages written to merged documents",
        },
    )

    registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
    registerOnce.Do(func() {
        prometheus.MustRegister(scansTotal, filesSkipped, catalogPages, selectionSize, mergesTotal, mergeLatency, pagesWritten)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveScan(result string, pages int) {
    scansTotal.WithLabelValues(result).Inc()
    if result == "ok" { catalogPages.Set(float64(pages)) }
}

func IncSkipped() { filesSkipped.Inc() }

func SetSelection(n int) { selectionSize.Set(float64(n)) }

func ObserveMerge(result string, pages int, dur time.Duration) {
    mergesTotal.WithLabelValues(result).Inc()
    mergeLatency.Observe(dur.Seconds())
    if pages > 0 { pagesWritten.Add(float64(pages)) }
}
