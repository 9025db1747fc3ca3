package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
	"github.com/go-tangra/go-tangra-diskhealth/internal/hostinfo"
	"github.com/go-tangra/go-tangra-diskhealth/internal/source"
	"github.com/go-tangra/go-tangra-diskhealth/internal/volume"
)

func sampleReport() *Report {
	target := &health.Record{
		DiskNumber:     health.IntPtr(0),
		FriendlyName:   "WDC WD10EZEX",
		SerialNumber:   "WD-1234",
		SizeBytes:      1000202273280,
		PredictFailure: health.PredictAtRisk,
		HealthStatus:   health.StatusPtr(health.HealthWarning),
		IsTargetVolume: true,
		Keys:           []string{"NUM:0", "SER:WD1234"},
	}
	target.OperationalStatus.Add("OK")
	target.Notes.Add("failure predicted (reason 0x05)")
	target.Sources.Add(source.NameDiskEnumeration, source.NamePhysicalDisk)

	other := &health.Record{
		DiskNumber:   health.IntPtr(1),
		Model:        "Samsung SSD 980",
		HealthStatus: health.StatusPtr(health.HealthHealthy),
		Keys:         []string{"NUM:1"},
	}

	r := New(hostinfo.Info{Hostname: "WS-042", Manufacturer: "Dell Inc.", Product: "OptiPlex"},
		[]*health.Record{target, other})
	r.CollectedAt = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	r.Volumes = []volume.Mapping{{Volume: "C:", Disks: []int{0}}}
	r.TargetDisks = []int{0}
	r.Sources = []source.Result{
		{Source: source.NameDiskEnumeration, Provider: "Win32_DiskDrive", Status: source.StatusOK, Observations: 2, Duration: 12 * time.Millisecond},
		{Source: source.NameFailurePrediction, Status: source.StatusUnavailable, Error: "provider unavailable"},
	}
	return r
}

func TestSummarize(t *testing.T) {
	s := sampleReport().Summary

	assert.Equal(t, Summary{
		Total:            2,
		AtRisk:           1,
		PredictedFailure: 1,
		Targets:          1,
		TargetAtRisk:     true,
	}, s)
}

func TestSummarize_Unhealthy(t *testing.T) {
	s := Summarize([]*health.Record{
		{HealthStatus: health.StatusPtr(health.HealthCritical)},
		{HealthStatus: health.StatusPtr(health.HealthUnhealthy), PredictFailure: health.PredictAtRisk},
		{},
	})

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.AtRisk)
	assert.Equal(t, 2, s.Unhealthy)
	assert.Equal(t, 1, s.PredictedFailure)
	assert.False(t, s.TargetAtRisk)
}

func TestSummarize_SkipsNilRecords(t *testing.T) {
	var s Summary
	require.NotPanics(t, func() {
		s = Summarize([]*health.Record{nil, {PredictFailure: health.PredictAtRisk, IsTargetVolume: true}, nil})
	})

	assert.Equal(t, Summary{Total: 1, AtRisk: 1, PredictedFailure: 1, Targets: 1, TargetAtRisk: true}, s)
}

func TestNew_EmptyRecords(t *testing.T) {
	r := New(hostinfo.Info{}, nil)

	assert.NotEmpty(t, r.ID)
	assert.NotNil(t, r.Records)
	assert.True(t, r.Healthy())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r, FormatJSON))
	assert.Contains(t, buf.String(), `"records": []`)
}

func TestEncodeJSON_Decode(t *testing.T) {
	in := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in, FormatJSON))

	out := buf.String()
	assert.Contains(t, out, `"health_status": "Warning"`)
	assert.Contains(t, out, `"predict_failure": "AtRisk"`)
	assert.Contains(t, out, `"is_target_volume": true`)

	got, err := Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.True(t, in.CollectedAt.Equal(got.CollectedAt))
	require.Len(t, got.Records, 2)
	assert.Equal(t, health.PredictAtRisk, got.Records[0].PredictFailure)
	assert.Equal(t, []string{"OK"}, got.Records[0].OperationalStatus.Values())
	assert.Equal(t, in.Summary, got.Summary)
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReport(), FormatYAML))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	records := doc["records"].([]any)
	first := records[0].(map[string]any)
	assert.Equal(t, "Warning", first["health_status"])
	assert.Equal(t, "AtRisk", first["predict_failure"])
	assert.Equal(t, []any{"OK"}, first["operational_status"])

	sources := doc["sources"].([]any)
	assert.Equal(t, "12ms", sources[0].(map[string]any)["duration"])
}

func TestRender(t *testing.T) {
	out := Render(sampleReport())

	for _, want := range []string{
		"WS-042",
		"Dell Inc. OptiPlex",
		"2026-10-16T09:30:00Z",
		"Volume C:",
		"WDC WD10EZEX",
		"WD-1234",
		"1.0 TB",
		"AtRisk",
		"Samsung SSD 980",
		"disk-enumeration (Win32_DiskDrive)",
		"unavailable",
		"2 devices, 1 at risk, including the target volume",
	} {
		assert.Contains(t, out, want)
	}

	assert.Less(t, strings.Index(out, "WDC WD10EZEX"), strings.Index(out, "Samsung SSD 980"))
}

func TestRender_NoDevices(t *testing.T) {
	out := Render(New(hostinfo.Info{}, nil))

	assert.Contains(t, out, "No storage devices found.")
	assert.Contains(t, out, "0 devices, none at risk")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":     FormatText,
		"TEXT": FormatText,
		"json": FormatJSON,
		"yml":  FormatYAML,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
	assert.Error(t, Encode(&bytes.Buffer{}, sampleReport(), Format("xml")))
}
