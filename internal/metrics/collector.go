// Package metrics exposes catalog state and service outcomes to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every catalog metric.
const Namespace = "catalog"

// ItemCounter reports the current number of stored items.
type ItemCounter interface {
	Count() int
}

// CatalogCollector is a prometheus.Collector reporting the item count,
// read at scrape time, and a counter of service operations by result.
type CatalogCollector struct {
	items      ItemCounter
	itemsDesc  *prometheus.Desc
	operations *prometheus.CounterVec
}

// NewCatalogCollector creates a collector reading the item count from items.
func NewCatalogCollector(items ItemCounter) *CatalogCollector {
	return &CatalogCollector{
		items: items,
		itemsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "items"),
			"Number of items currently in the catalog",
			nil, nil,
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of catalog service operations",
			},
			[]string{"operation", "result"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *CatalogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.itemsDesc
	c.operations.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *CatalogCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.itemsDesc, prometheus.GaugeValue, float64(c.items.Count()))
	c.operations.Collect(ch)
}

// RecordOperation implements service.Recorder.
func (c *CatalogCollector) RecordOperation(operation, result string) {
	c.operations.WithLabelValues(operation, result).Inc()
}
