package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodToMs(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1s", 1_000},
		{"1m", 60_000},
		{"1h", 3_600_000},
		{"1d", 86_400_000},
		{"2d", 172_800_000},
		{"15m", 900_000},
		{" 1H ", 3_600_000},
	}
	for _, c := range cases {
		got, err := PeriodToMs(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "period %q", c.in)
	}
}

func TestPeriodToMsErrors(t *testing.T) {
	for _, in := range []string{"", "1x", "abc", "m"} {
		_, err := PeriodToMs(in)
		assert.Error(t, err, "period %q", in)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestDrawdown(t *testing.T) {
	assert.InDelta(t, 0.3, Drawdown(1000, 700), 1e-9)
	assert.Equal(t, 0.0, Drawdown(0, 700))
}
