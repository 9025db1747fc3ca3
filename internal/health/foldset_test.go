package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldSet(t *testing.T) {
	var s FoldSet

	assert.Equal(t, 2, s.Add("OK", "Degraded"))
	assert.Equal(t, 0, s.Add("ok", " DEGRADED "))
	assert.Equal(t, 0, s.Add("", "   "))
	assert.Equal(t, 1, s.Add("Stressed"))

	assert.Equal(t, []string{"OK", "Degraded", "Stressed"}, s.Values())
	assert.True(t, s.Contains("stressed"))
	assert.False(t, s.Contains("Error"))
}

func TestFoldSet_UnionOnlyGrows(t *testing.T) {
	a := NewFoldSet("x", "y")
	b := NewFoldSet("Y", "z")

	before := a.Len()
	a.Union(b)

	assert.GreaterOrEqual(t, a.Len(), before)
	assert.Equal(t, []string{"x", "y", "z"}, a.Values())
}

func TestFoldSet_ZeroValues(t *testing.T) {
	var s FoldSet
	assert.Nil(t, s.Values())
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("x"))
}
