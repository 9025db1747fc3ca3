package hostinfo

import (
	"errors"
	"testing"

	"github.com/siderolabs/go-smbios/smbios"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func stub(t *testing.T, s *smbios.SMBIOS, err error) {
	t.Helper()
	prevRead, prevHost := readSMBIOS, hostname
	readSMBIOS = func() (*smbios.SMBIOS, error) { return s, err }
	hostname = func() (string, error) { return "WS-042", nil }
	t.Cleanup(func() { readSMBIOS, hostname = prevRead, prevHost })
}

func TestCollect(t *testing.T) {
	s := &smbios.SMBIOS{}
	s.SystemInformation.Manufacturer = " Dell Inc. "
	s.SystemInformation.ProductName = "OptiPlex 7090"
	s.SystemInformation.SerialNumber = "To Be Filled By O.E.M."
	s.SystemInformation.UUID = "4c4c4544-0042-3510-8051-b4c04f563033"
	stub(t, s, nil)

	got := Collect(zaptest.NewLogger(t))

	assert.Equal(t, Info{
		Hostname:     "WS-042",
		Manufacturer: "Dell Inc.",
		Product:      "OptiPlex 7090",
		UUID:         "4c4c4544-0042-3510-8051-b4c04f563033",
	}, got)
}

func TestCollect_NoSMBIOS(t *testing.T) {
	stub(t, nil, errors.New("no smbios entry point"))

	got := Collect(nil)

	assert.Equal(t, Info{Hostname: "WS-042"}, got)
}
