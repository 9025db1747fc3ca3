//go:build !windows

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestDefaultsWithoutWMI(t *testing.T) {
	for _, a := range []Adapter{NewDiskDrive(), NewPhysicalDisk(), NewFailurePredict()} {
		_, err := collectAll(t, a)
		assert.ErrorIs(t, err, ErrUnavailable, a.Name())
	}

	c := NewChain(NameDiskEnumeration, zaptest.NewLogger(t), NewDiskDrive(), &fakeAdapter{name: "fallback", emit: serials("A")})
	obs, err := collectAll(t, c)
	assert.NoError(t, err)
	assert.Len(t, obs, 1)
	assert.Equal(t, "fallback", c.Provider())
}
