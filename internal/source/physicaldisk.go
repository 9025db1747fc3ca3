package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

const storageNamespace = `root\Microsoft\Windows\Storage`

type msftPhysicalDisk struct {
	DeviceId          string
	FriendlyName      string
	Model             string
	SerialNumber      string
	Size              uint64
	HealthStatus      uint16
	OperationalStatus []uint16
}

const physicalDiskQuery = "SELECT DeviceId, FriendlyName, Model, SerialNumber, Size, HealthStatus, OperationalStatus FROM MSFT_PhysicalDisk"

// nativeHealth maps MSFT_PhysicalDisk.HealthStatus onto HealthStatus.
var nativeHealth = map[uint16]health.HealthStatus{
	0: health.HealthHealthy,
	1: health.HealthWarning,
	2: health.HealthUnhealthy,
	5: health.HealthUnknown,
}

// PhysicalDisk reads health detail from the Storage Management provider.
type PhysicalDisk struct {
	query queryFunc
}

// NewPhysicalDisk returns the MSFT_PhysicalDisk adapter.
func NewPhysicalDisk() *PhysicalDisk {
	return &PhysicalDisk{query: wmiQuery}
}

func (p *PhysicalDisk) Name() string { return NamePhysicalDisk }

func (p *PhysicalDisk) Collect(ctx context.Context, emit func(health.Observation)) error {
	var rows []msftPhysicalDisk
	if err := p.query(ctx, physicalDiskQuery, storageNamespace, &rows); err != nil {
		return fmt.Errorf("query MSFT_PhysicalDisk: %w", err)
	}
	for _, row := range rows {
		emit(row.observation())
	}
	return nil
}

func (r msftPhysicalDisk) observation() health.Observation {
	o := health.Observation{
		Source:       NamePhysicalDisk,
		FriendlyName: strings.TrimSpace(r.FriendlyName),
		Model:        strings.TrimSpace(r.Model),
		SerialNumber: strings.TrimSpace(r.SerialNumber),
		SizeBytes:    r.Size,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(r.DeviceId)); err == nil && n >= 0 {
		o.DiskNumber = health.IntPtr(n)
	}
	if s, ok := nativeHealth[r.HealthStatus]; ok {
		o.HealthStatus = health.StatusPtr(s)
	}
	for _, code := range r.OperationalStatus {
		if name, ok := health.OperationalStatusName(int(code)); ok {
			o.OperationalStatus = append(o.OperationalStatus, name)
		}
	}
	health.DeriveKeys(&o)
	return o
}
