package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprox(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"100.00", "99.99", true},
		{"100.00", "100.01", true},
		{"100.00", "99.98", false},
		{"0", "0.005", true},
		{"33.333", "33.33", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Approx(MustParse(tt.a), MustParse(tt.b)), "Approx(%s, %s)", tt.a, tt.b)
	}
}

func TestIsNegligible(t *testing.T) {
	assert.True(t, IsNegligible(MustParse("0.01")))
	assert.True(t, IsNegligible(MustParse("-0.01")))
	assert.False(t, IsNegligible(MustParse("0.011")))
	assert.False(t, IsNegligible(MustParse("-20")))
}

func TestRound2AndSum(t *testing.T) {
	assert.Equal(t, "33.33", Round2(MustParse("33.3333")).StringFixed(2))
	assert.Equal(t, "0.01", Round2(MustParse("0.005")).StringFixed(2))
	assert.True(t, Sum(MustParse("33.33"), MustParse("33.33"), MustParse("33.34")).Equal(Hundred))
}

func TestParse(t *testing.T) {
	d, err := Parse("12.50")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = Parse("twelve")
	assert.Error(t, err)
}
