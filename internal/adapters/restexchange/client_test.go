package restexchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverbend/marketmaker/internal/domain"
)

func TestRoundTo(t *testing.T) {
	cases := []struct {
		v         float64
		precision int32
		want      float64
	}{
		{1.23456, 2, 1.23},
		{1.005, 2, 1.01},
		{100, 0, 100},
		{0.000123456, 6, 0.000123},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, roundTo(c.v, c.precision), 1e-9)
	}
}

func TestClassify_NetworkErrorWraps(t *testing.T) {
	err := classify(errors.New("dial tcp: timeout"), nil)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}
