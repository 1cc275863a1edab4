package sizing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	t.Parallel()

	errOverflow := errors.New("overflow")

	n, err := ToInt(42, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = ToInt(math.MaxUint64, errOverflow)
	assert.ErrorIs(t, err, errOverflow)
}

func TestInRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		offset, size, lim int64
		want              bool
	}{
		{"inside", 0, 10, 10, true},
		{"empty at end", 10, 0, 10, true},
		{"past end", 5, 6, 10, false},
		{"negative offset", -1, 1, 10, false},
		{"negative size", 0, -1, 10, false},
		{"overflow", math.MaxInt64, math.MaxInt64, math.MaxInt64, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, InRange(tc.offset, tc.size, tc.lim))
		})
	}
}

func TestMulFits(t *testing.T) {
	t.Parallel()

	assert.True(t, MulFits(1024, 1024))
	assert.True(t, MulFits(0, math.MaxInt))
	assert.False(t, MulFits(math.MaxInt, 2))
	assert.False(t, MulFits(-1, 2))
}
