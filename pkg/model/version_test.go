package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

func TestVersionOrdering(t *testing.T) {
	cases := []struct {
		a, b model.Version
		want int
	}{
		{"1.9", "1.10", -1},
		{"1.10", "2.0", -1},
		{"2.0", "1.10", 1},
		{"1.2", "1.2", 0},
		{"1.2", "1.2.1", -1},
		{"1.2.1", "1.2", 1},
		{"0.9", "0.10.0", -1},
		{"10.0", "9.9", 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.a.Compare(c.b), "%s vs %s", c.a, c.b)
	}
}

func TestVersionNonNumericSegments(t *testing.T) {
	// Numeric segments order before non-numeric ones.
	assert.True(t, model.Version("1.0").Less("1.rc1"))
	// Equal non-numeric segments are fine.
	assert.Equal(t, 0, model.Version("1.rc1").Compare("1.rc1"))
	// Differing non-numeric segments compare lexically.
	assert.True(t, model.Version("1.a").Less("1.b"))
}

func TestVersionLess(t *testing.T) {
	assert.True(t, model.Version("1.9").Less("1.10"))
	assert.False(t, model.Version("1.10").Less("1.9"))
	assert.False(t, model.Version("1.10").Less("1.10"))
}
