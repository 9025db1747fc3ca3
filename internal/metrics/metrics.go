// Package metrics exposes the collector's view of the fleet as Prometheus
// gauges, refreshed from every submitted report.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	HostDevices      *prometheus.GaugeVec
	HostAtRisk       *prometheus.GaugeVec
	HostTargetAtRisk *prometheus.GaugeVec
	DeviceAtRisk     *prometheus.GaugeVec
	DeviceHealth     *prometheus.GaugeVec
	LastReport       *prometheus.GaugeVec
	ReportsReceived  *prometheus.CounterVec
	ConnectedAgents  prometheus.Gauge
	ReportsPurged    prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HostDevices: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskhealth_host_devices",
				Help: "Number of storage devices in the latest report",
			},
			[]string{"hostname"},
		),
		HostAtRisk: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskhealth_host_devices_at_risk",
				Help: "Number of at-risk storage devices in the latest report",
			},
			[]string{"hostname"},
		),
		HostTargetAtRisk: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskhealth_host_target_at_risk",
				Help: "Whether a disk backing a target volume is at risk (0/1)",
			},
			[]string{"hostname"},
		),
		DeviceAtRisk: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskhealth_device_at_risk",
				Help: "Whether the device is predicted to fail or unhealthy (0/1)",
			},
			[]string{"hostname", "disk", "serial", "model", "target"},
		),
		DeviceHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskhealth_device_health_status",
				Help: "Device health status (0=unknown, 1=healthy, 2=warning, 3=unhealthy, 4=critical)",
			},
			[]string{"hostname", "disk", "serial", "model"},
		),
		LastReport: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskhealth_last_report_timestamp_seconds",
				Help: "Collection time of the latest report",
			},
			[]string{"hostname"},
		),
		ReportsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diskhealth_reports_received_total",
				Help: "Reports received by the collector",
			},
			[]string{"hostname"},
		),
		ConnectedAgents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "diskhealth_connected_agents",
				Help: "Agents currently holding a command stream",
			},
		),
		ReportsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "diskhealth_reports_purged_total",
				Help: "Reports removed by retention purges",
			},
		),
	}

	reg.MustRegister(
		m.HostDevices,
		m.HostAtRisk,
		m.HostTargetAtRisk,
		m.DeviceAtRisk,
		m.DeviceHealth,
		m.LastReport,
		m.ReportsReceived,
		m.ConnectedAgents,
		m.ReportsPurged,
	)

	return m
}

// Observe replaces the host's gauges with the contents of rep.
func (m *Metrics) Observe(rep *report.Report) {
	host := rep.Host.Hostname

	m.ReportsReceived.WithLabelValues(host).Inc()
	m.HostDevices.WithLabelValues(host).Set(float64(rep.Summary.Total))
	m.HostAtRisk.WithLabelValues(host).Set(float64(rep.Summary.AtRisk))
	m.HostTargetAtRisk.WithLabelValues(host).Set(boolValue(rep.Summary.TargetAtRisk))
	m.LastReport.WithLabelValues(host).Set(float64(rep.CollectedAt.Unix()))

	// Devices may have disappeared since the previous report.
	m.DeviceAtRisk.DeletePartialMatch(prometheus.Labels{"hostname": host})
	m.DeviceHealth.DeletePartialMatch(prometheus.Labels{"hostname": host})

	for _, r := range rep.Records {
		if r == nil {
			continue
		}
		disk := diskLabel(r.DiskNumber)
		m.DeviceAtRisk.WithLabelValues(host, disk, r.SerialNumber, r.Model, strconv.FormatBool(r.IsTargetVolume)).
			Set(boolValue(r.AtRisk()))

		status := health.HealthUnknown
		if r.HealthStatus != nil {
			status = *r.HealthStatus
		}
		m.DeviceHealth.WithLabelValues(host, disk, r.SerialNumber, r.Model).Set(float64(status))
	}
}

func diskLabel(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
