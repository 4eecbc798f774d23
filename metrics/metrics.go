// Package metrics
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aquagov/governance-backend/types"
)

const namespace = "governance"

// Provider collects reconciliation counters and keeps running averages for log lines.
type Provider struct {
	votesCreated   prometheus.Counter
	votesUpdated   prometheus.Counter
	votesRetired   prometheus.Counter
	recordsSkipped prometheus.Counter
	passesFailed   *prometheus.CounterVec
	passDuration   prometheus.Histogram
	scanDuration   prometheus.Histogram

	mu        sync.Mutex
	scanTotal time.Duration
	scanCount int64
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Provider {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Provider{
		votesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_created_total",
			Help:      "number of votes created by reconciliation",
		}),
		votesUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_updated_total",
			Help:      "number of votes refreshed by reconciliation",
		}),
		votesRetired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_retired_total",
			Help:      "number of votes retired because their balance disappeared",
		}),
		recordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balances_skipped_total",
			Help:      "number of claimable balances rejected as votes",
		}),
		passesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_failures_total",
			Help:      "number of failed proposal passes by stage",
		}, []string{"stage"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "duration of one proposal reconciliation pass",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_scan_duration_seconds",
			Help:      "duration of the ledger scan of one proposal",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

func (p *Provider) ObserveReport(report *types.ReconcileReport) {
	p.votesCreated.Add(float64(report.Created))
	p.votesUpdated.Add(float64(report.Updated))
	p.votesRetired.Add(float64(report.Retired))
	p.recordsSkipped.Add(float64(report.Skipped))
	p.passDuration.Observe(report.Duration.Seconds())
}

func (p *Provider) IncFailure(stage string) {
	p.passesFailed.WithLabelValues(stage).Inc()
}

func (p *Provider) RecordScanTime(d time.Duration) {
	p.scanDuration.Observe(d.Seconds())
	p.mu.Lock()
	p.scanTotal += d
	p.scanCount++
	p.mu.Unlock()
}

// GetScanTime returns the average scan time formatted for logs.
func (p *Provider) GetScanTime() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scanCount == 0 {
		return "0s"
	}
	return fmt.Sprintf("%v", p.scanTotal/time.Duration(p.scanCount))
}
