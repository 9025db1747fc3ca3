// Package hostinfo identifies the machine a report was taken on.
package hostinfo

import (
	"os"
	"strings"

	"github.com/siderolabs/go-smbios/smbios"
	"go.uber.org/zap"
)

// Info holds the host identity from the OS and the SMBIOS system table.
type Info struct {
	Hostname     string `json:"hostname" yaml:"hostname"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty" yaml:"product,omitempty"`
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	UUID         string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
}

var (
	readSMBIOS = smbios.New
	hostname   = os.Hostname
)

// Collect returns what is known about the host. Missing SMBIOS data is
// logged and leaves the hardware fields empty.
func Collect(log *zap.Logger) Info {
	if log == nil {
		log = zap.NewNop()
	}

	var info Info
	if h, err := hostname(); err == nil {
		info.Hostname = h
	} else {
		log.Warn("Cannot read hostname", zap.Error(err))
	}

	s, err := readSMBIOS()
	if err != nil {
		log.Info("SMBIOS unavailable", zap.Error(err))
		return info
	}
	sys := s.SystemInformation
	info.Manufacturer = clean(sys.Manufacturer)
	info.Product = clean(sys.ProductName)
	info.SerialNumber = clean(sys.SerialNumber)
	info.UUID = clean(sys.UUID)
	return info
}

// clean drops the placeholder strings vendors leave in unset SMBIOS fields.
func clean(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "to be filled by o.e.m.", "default string", "system serial number", "not specified", "none":
		return ""
	}
	return s
}
