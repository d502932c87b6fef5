package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"héllo wörld", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Estimate(tt.text), tt.text)
	}
}

func TestCounter_UnknownEncodingFallsBack(t *testing.T) {
	c := NewCounter("no-such-encoding")
	assert.Equal(t, Estimate("hello world, again"), c.Count("hello world, again"))
	assert.False(t, c.Exact())
}

func TestEstimator(t *testing.T) {
	c := NewEstimator()
	assert.False(t, c.Exact())
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 3, c.Count("twelve chars"))
}
