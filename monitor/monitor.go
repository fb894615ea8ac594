/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package monitor

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_total",
			Help: "Counter of logic queries.",
		},
		[]string{"kind", "result"},
	)

	unitTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unit_total",
			Help: "Counter of execution units sent to data sources.",
		},
		[]string{"data_source", "result"},
	)

	unitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unit_duration_seconds",
			Help:    "Execution unit latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"data_source"},
	)

	mergeTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merge_total",
			Help: "Counter of merges by strategy.",
		},
		[]string{"strategy"},
	)

	dataSourceNum = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "data_source_number",
			Help: "data source Number",
		},
		[]string{"driver"},
	)
)

func init() {
	prometheus.MustRegister(queryTotalCounter)
	prometheus.MustRegister(unitTotalCounter)
	prometheus.MustRegister(unitDuration)
	prometheus.MustRegister(mergeTotalCounter)
	prometheus.MustRegister(dataSourceNum)
}

// QueryTotalCounterInc add 1
func QueryTotalCounterInc(kind string, result string) {
	queryTotalCounter.WithLabelValues(kind, result).Inc()
}

// UnitTotalCounterInc add 1
func UnitTotalCounterInc(dataSource string, result string) {
	unitTotalCounter.WithLabelValues(dataSource, result).Inc()
}

// UnitDurationObserve records the latency of one unit.
func UnitDurationObserve(dataSource string, d time.Duration) {
	unitDuration.WithLabelValues(dataSource).Observe(d.Seconds())
}

// MergeTotalCounterInc add 1
func MergeTotalCounterInc(strategy string) {
	mergeTotalCounter.WithLabelValues(strategy).Inc()
}

// DataSourceInc add 1
func DataSourceInc(driver string) {
	dataSourceNum.WithLabelValues(driver).Inc()
}

// DataSourceDec dec 1
func DataSourceDec(driver string) {
	dataSourceNum.WithLabelValues(driver).Dec()
}

// Sample is one counter or gauge value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers the counters and gauges of the default registry, histograms
// are reported by their sample count.
func Snapshot() ([]Sample, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}
	var samples []Sample
	for _, family := range families {
		for _, m := range family.GetMetric() {
			var labels []string
			for _, pair := range m.GetLabel() {
				labels = append(labels, pair.GetName()+"="+pair.GetValue())
			}
			s := Sample{Name: family.GetName(), Labels: strings.Join(labels, ",")}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}
