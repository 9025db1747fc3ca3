package health

import (
	"fmt"
	"strings"
)

// HealthStatus is the canonical device health enumeration carried by records.
// The numeric values are part of the report contract.
type HealthStatus int

const (
	HealthUnknown   HealthStatus = 0
	HealthHealthy   HealthStatus = 1
	HealthWarning   HealthStatus = 2
	HealthUnhealthy HealthStatus = 3
	HealthCritical  HealthStatus = 4
)

var healthStatusNames = [...]string{
	HealthUnknown:   "Unknown",
	HealthHealthy:   "Healthy",
	HealthWarning:   "Warning",
	HealthUnhealthy: "Unhealthy",
	HealthCritical:  "Critical",
}

// HealthStatusFromCode returns the status for a canonical code, or false when
// the code is outside the enumeration.
func HealthStatusFromCode(code int) (HealthStatus, bool) {
	if code < 0 || code >= len(healthStatusNames) {
		return HealthUnknown, false
	}
	return HealthStatus(code), true
}

// ParseHealthStatus matches a status name case-insensitively.
func ParseHealthStatus(name string) (HealthStatus, bool) {
	for i, n := range healthStatusNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return HealthStatus(i), true
		}
	}
	return HealthUnknown, false
}

func (s HealthStatus) String() string {
	if s < 0 || int(s) >= len(healthStatusNames) {
		return fmt.Sprintf("HealthStatus(%d)", int(s))
	}
	return healthStatusNames[s]
}

// MarshalText encodes the status by name so JSON and YAML reports stay readable.
func (s HealthStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(healthStatusNames) {
		return nil, fmt.Errorf("invalid health status %d", int(s))
	}
	return []byte(healthStatusNames[s]), nil
}

func (s *HealthStatus) UnmarshalText(b []byte) error {
	v, ok := ParseHealthStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown health status %q", string(b))
	}
	*s = v
	return nil
}

// operationalStatusNames follows the CIM OperationalStatus value map.
var operationalStatusNames = [...]string{
	"Unknown",
	"Other",
	"OK",
	"Degraded",
	"Stressed",
	"Predictive Failure",
	"Error",
	"Non-Recoverable Error",
	"Starting",
	"Stopping",
	"Stopped",
	"In Service",
	"No Contact",
	"Lost Communication",
	"Aborted",
	"Dormant",
	"Supporting Entity In Error",
	"Completed",
	"Power Mode",
	"Relocating",
}

// OperationalStatusName translates an operational status code. Codes outside
// the enumeration (including vendor-specific ranges) report false.
func OperationalStatusName(code int) (string, bool) {
	if code < 0 || code >= len(operationalStatusNames) {
		return "", false
	}
	return operationalStatusNames[code], true
}

// PredictFailure is the accumulated failure-prediction verdict for a device.
type PredictFailure int

const (
	PredictUnknown PredictFailure = iota
	PredictHealthy
	PredictAtRisk
)

func (p PredictFailure) String() string {
	switch p {
	case PredictHealthy:
		return "Healthy"
	case PredictAtRisk:
		return "AtRisk"
	default:
		return "Unknown"
	}
}

// Combine applies the precedence AtRisk > Healthy > Unknown.
func (p PredictFailure) Combine(o PredictFailure) PredictFailure {
	if o > p {
		return o
	}
	return p
}

func (p PredictFailure) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PredictFailure) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "unknown":
		*p = PredictUnknown
	case "healthy":
		*p = PredictHealthy
	case "atrisk", "at_risk", "at risk":
		*p = PredictAtRisk
	default:
		return fmt.Errorf("unknown predict failure value %q", string(b))
	}
	return nil
}
