package tasks

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var tasksDesc = prometheus.NewDesc(
	"tasks_stored",
	"Number of stored tasks by state",
	[]string{"state"}, nil,
)

// Collector exposes task counts from a Repository at scrape time.
type Collector struct {
	repo    Repository
	timeout time.Duration
}

func NewCollector(repo Repository) *Collector {
	return &Collector{repo: repo, timeout: 2 * time.Second}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) { ch <- tasksDesc }

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	list, err := c.repo.List(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(tasksDesc, err)
		return
	}
	var active, completed int
	for _, t := range list {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}
	ch <- prometheus.MustNewConstMetric(tasksDesc, prometheus.GaugeValue, float64(active), "active")
	ch <- prometheus.MustNewConstMetric(tasksDesc, prometheus.GaugeValue, float64(completed), "completed")
}
