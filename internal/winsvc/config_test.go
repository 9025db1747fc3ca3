package winsvc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{Name: "TangraDiskHealthAgent", Dependencies: []string{"Winmgmt"}}, ""},
		{"missing name", Config{}, "required"},
		{"space", Config{Name: "Disk Health"}, "not allowed"},
		{"backslash", Config{Name: `Disk\Health`}, "not allowed"},
		{"too long", Config{Name: strings.Repeat("a", 257)}, "limit is 256"},
		{"blank dependency", Config{Name: "Agent", Dependencies: []string{" "}}, "dependency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidate_DefaultsDisplayName(t *testing.T) {
	cfg := Config{Name: "TangraDiskHealthCollector"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "TangraDiskHealthCollector", cfg.DisplayName)

	cfg = Config{Name: "Agent", DisplayName: "Tangra Agent"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Tangra Agent", cfg.DisplayName)
}
