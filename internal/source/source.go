// Package source collects device observations from the host's storage
// providers. Each adapter reports what one provider knows and never touches
// reconciled state.
package source

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// Source names, in priority order.
const (
	NameDiskEnumeration   = "disk-enumeration"
	NamePhysicalDisk      = "physical-disk"
	NameFailurePrediction = "failure-prediction"
)

// ErrUnavailable is returned by an adapter whose provider does not exist on
// this host.
var ErrUnavailable = errors.New("provider unavailable")

// Adapter produces observations from a single provider.
type Adapter interface {
	Name() string
	Collect(ctx context.Context, emit func(health.Observation)) error
}

// queryFunc runs a WMI query against namespace ("" for root\cimv2) and
// decodes the rows into dst, a pointer to a slice of structs.
type queryFunc func(ctx context.Context, query, namespace string, dst any) error

// isProviderMissing reports whether a WMI error means the namespace or
// class does not exist, as opposed to a failing query.
func isProviderMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid namespace") ||
		strings.Contains(msg, "invalid class") ||
		strings.Contains(msg, "0x8004100e") ||
		strings.Contains(msg, "0x80041010")
}

// Defaults returns the standard adapters in priority order.
func Defaults(log *zap.Logger) []Adapter {
	return []Adapter{
		NewChain(NameDiskEnumeration, log, NewDiskDrive(), NewIOCounters()),
		NewPhysicalDisk(),
		NewFailurePredict(),
	}
}
