// Package health defines the device health records produced by a disk checkup
// and the observations that sources contribute to them.
package health

// Record is the canonical view of one physical storage device. It is an
// accumulator while a reconciliation pass runs and read-only afterwards.
type Record struct {
	DiskNumber        *int           `json:"disk_number,omitempty" yaml:"disk_number,omitempty"`
	FriendlyName      string         `json:"friendly_name,omitempty" yaml:"friendly_name,omitempty"`
	Model             string         `json:"model,omitempty" yaml:"model,omitempty"`
	SerialNumber      string         `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	SizeBytes         uint64         `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	PredictFailure    PredictFailure `json:"predict_failure" yaml:"predict_failure"`
	HealthStatus      *HealthStatus  `json:"health_status,omitempty" yaml:"health_status,omitempty"`
	OperationalStatus FoldSet        `json:"operational_status" yaml:"operational_status"`
	Notes             FoldSet        `json:"notes" yaml:"notes"`
	IsTargetVolume    bool           `json:"is_target_volume" yaml:"is_target_volume"`

	// Sources names the providers that contributed to the record.
	Sources FoldSet `json:"sources" yaml:"sources"`
	// Keys lists the candidate keys registered to the record, in
	// registration order.
	Keys []string `json:"keys" yaml:"keys"`
}

// AtRisk reports whether any source predicts failure or flags the device as
// unhealthy.
func (r *Record) AtRisk() bool {
	if r.PredictFailure == PredictAtRisk {
		return true
	}
	return r.HealthStatus != nil && *r.HealthStatus >= HealthUnhealthy
}

// DisplayName picks the most human-friendly identifier available.
func (r *Record) DisplayName() string {
	switch {
	case r.FriendlyName != "":
		return r.FriendlyName
	case r.Model != "":
		return r.Model
	case r.SerialNumber != "":
		return r.SerialNumber
	case len(r.Keys) > 0:
		return r.Keys[0]
	}
	return "unknown device"
}

// Observation is what a single raw source record says about a device. Keys is
// never empty once DeriveKeys has run.
type Observation struct {
	Source string

	Keys []string

	DiskNumber        *int
	FriendlyName      string
	Model             string
	SerialNumber      string
	SizeBytes         uint64
	PredictFailure    PredictFailure
	HealthStatus      *HealthStatus
	OperationalStatus []string
	Notes             []string

	// Identity hints that only feed key derivation and resolution.
	DevicePath   string
	PNPDeviceID  string
	InstanceName string
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// StatusPtr returns a pointer to s.
func StatusPtr(s HealthStatus) *HealthStatus { return &s }
