package health

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Candidate key prefixes, strongest first.
const (
	PrefixDiskNumber = "NUM:"
	PrefixSerial     = "SER:"
	PrefixPNP        = "PNP:"
	PrefixName       = "NAM:"
	PrefixModel      = "MOD:"
	PrefixInstance   = "INS:"
	PrefixUnknown    = "UNK:"
)

var (
	physicalDriveRe  = regexp.MustCompile(`(?i)PHYSICALDRIVE(\d+)\s*$`)
	instanceSuffixRe = regexp.MustCompile(`_\d+$`)
)

// newID is swapped in tests that need stable fallback keys.
var newID = uuid.NewString

// Normalize upper-cases s and drops every character outside [A-Z0-9].
func Normalize(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDiskNumber extracts n from a device path ending in PHYSICALDRIVEn.
func ParseDiskNumber(devicePath string) (int, bool) {
	m := physicalDriveRe.FindStringSubmatch(devicePath)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// TrimInstanceSuffix removes the trailing _n instance index that provider
// instance names append to the PNP device id.
func TrimInstanceSuffix(instanceName string) string {
	return instanceSuffixRe.ReplaceAllString(strings.TrimSpace(instanceName), "")
}

// DiskNumberKey returns the NUM key for a physical disk index.
func DiskNumberKey(n int) string {
	return PrefixDiskNumber + strconv.Itoa(n)
}

func prefixed(prefix, raw string) string {
	n := Normalize(raw)
	if n == "" {
		return ""
	}
	return prefix + n
}

// SerialKey returns the SER key for a serial number, or "" when nothing
// survives normalization.
func SerialKey(serial string) string { return prefixed(PrefixSerial, serial) }

// NameKey returns the NAM key for a friendly name.
func NameKey(name string) string {
	return prefixed(PrefixName, strings.Join(strings.Fields(name), ""))
}

// ModelKey returns the MOD key for a model string.
func ModelKey(model string) string { return prefixed(PrefixModel, model) }

// PNPKey returns the PNP key for a PNP device id.
func PNPKey(id string) string { return prefixed(PrefixPNP, id) }

// InstanceKey returns the INS key for a provider instance name.
func InstanceKey(instanceName string) string { return prefixed(PrefixInstance, instanceName) }

// DeriveKeys computes every candidate key the observation supports, stores
// them in o.Keys and returns them. A disk number is taken from DevicePath
// when the source did not report one directly. Observations with no usable
// identity get a random UNK key so they still become their own record.
func DeriveKeys(o *Observation) []string {
	if o.DiskNumber == nil {
		if n, ok := ParseDiskNumber(o.DevicePath); ok {
			o.DiskNumber = &n
		}
	}
	if o.DiskNumber != nil && *o.DiskNumber < 0 {
		o.DiskNumber = nil
	}

	var keys []string
	seen := make(map[string]struct{})
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	if o.DiskNumber != nil {
		add(DiskNumberKey(*o.DiskNumber))
	}
	add(SerialKey(o.SerialNumber))
	add(PNPKey(o.PNPDeviceID))
	if o.InstanceName != "" {
		add(PNPKey(TrimInstanceSuffix(o.InstanceName)))
	}
	add(NameKey(o.FriendlyName))
	add(ModelKey(o.Model))
	add(InstanceKey(o.InstanceName))

	if len(keys) == 0 {
		keys = append(keys, PrefixUnknown+newID())
	}
	o.Keys = keys
	return keys
}
