package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

type win32DiskDrive struct {
	Index        uint32
	DeviceID     string
	PNPDeviceID  string
	Model        string
	SerialNumber string
	Size         uint64
	Status       string
}

const diskDriveQuery = "SELECT Index, DeviceID, PNPDeviceID, Model, SerialNumber, Size, Status FROM Win32_DiskDrive"

// DiskDrive enumerates physical disks through Win32_DiskDrive.
type DiskDrive struct {
	query queryFunc
}

// NewDiskDrive returns the Win32_DiskDrive provider.
func NewDiskDrive() *DiskDrive {
	return &DiskDrive{query: wmiQuery}
}

func (d *DiskDrive) Name() string { return "Win32_DiskDrive" }

func (d *DiskDrive) Collect(ctx context.Context, emit func(health.Observation)) error {
	var rows []win32DiskDrive
	if err := d.query(ctx, diskDriveQuery, "", &rows); err != nil {
		return fmt.Errorf("query Win32_DiskDrive: %w", err)
	}
	for _, row := range rows {
		emit(row.observation())
	}
	return nil
}

func (r win32DiskDrive) observation() health.Observation {
	o := health.Observation{
		Source:       NameDiskEnumeration,
		DevicePath:   strings.TrimSpace(r.DeviceID),
		PNPDeviceID:  strings.TrimSpace(r.PNPDeviceID),
		Model:        strings.TrimSpace(r.Model),
		SerialNumber: strings.TrimSpace(r.SerialNumber),
		SizeBytes:    r.Size,
	}
	// The device path is authoritative; Index only fills in when the path
	// does not carry a drive number.
	if n, ok := health.ParseDiskNumber(o.DevicePath); ok {
		o.DiskNumber = health.IntPtr(n)
	} else {
		o.DiskNumber = health.IntPtr(int(r.Index))
	}
	if s := strings.TrimSpace(r.Status); s != "" && !strings.EqualFold(s, "OK") {
		o.Notes = append(o.Notes, "drive status: "+s)
		if strings.EqualFold(s, "Pred Fail") {
			o.PredictFailure = health.PredictAtRisk
		}
	}
	health.DeriveKeys(&o)
	return o
}
