package rules

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerank/edgerank/internal/data"
)

func table(t *testing.T, closes ...float64) *data.PriceTable {
	t.Helper()
	bars := make([]data.Bar, len(closes))
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = data.Bar{
			Date: day.AddDate(0, 0, i),
			Open: c, High: c * 1.02, Low: c * 0.98, Close: c, Volume: 1000,
		}
	}
	pt, err := data.NewPriceTable("TEST", bars)
	require.NoError(t, err)
	return pt
}

func TestParams_Int(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
		want    int
	}{
		{"plain int", Params{"period": 14}, false, 14},
		{"yaml float", Params{"period": float64(14)}, false, 14},
		{"missing", Params{}, true, 0},
		{"zero", Params{"period": 0}, true, 0},
		{"negative", Params{"period": -5}, true, 0},
		{"wrong type", Params{"period": "14"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.params.Int("period")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_FloatOr(t *testing.T) {
	got, err := Params{}.FloatOr("multiplier", 3.0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = Params{"multiplier": 1.5}.FloatOr("multiplier", 3.0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)

	_, err = Params{"multiplier": -1.0}.FloatOr("multiplier", 3.0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSMACrossover(t *testing.T) {
	// Rising series: fast SMA above slow SMA once both exist.
	pt := table(t, 10, 11, 12, 13, 14, 15, 16, 17)
	reg := NewRegistry()

	got, err := reg.Evaluate(Definition{
		Name: "cross", Type: "sma_crossover",
		Params: Params{"fast_period": 2, "slow_period": 4},
	}, pt)
	require.NoError(t, err)
	require.Len(t, got, pt.Len())

	assert.False(t, got[0])
	assert.False(t, got[2]) // slow SMA still warming up
	for i := 3; i < len(got); i++ {
		assert.True(t, got[i], "expected fast above slow at %d", i)
	}
}

func TestRSIBelow_ThresholdRequired(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Evaluate(Definition{
		Name: "rsi", Type: "rsi_below", Params: Params{"period": 14},
	}, table(t, 1, 2, 3))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestVolumeAboveSMA(t *testing.T) {
	pt := table(t, 10, 10, 10, 10, 10)
	pt.Bars[4].Volume = 5000 // spike over the flat 1000 average

	reg := NewRegistry()
	got, err := reg.Evaluate(Definition{
		Name: "vol", Type: "volume_above_sma",
		Params: Params{"period": 3, "multiplier": 1.5},
	}, pt)
	require.NoError(t, err)

	assert.False(t, got[3])
	assert.True(t, got[4])
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Evaluate(Definition{Name: "x", Type: "no_such_rule"}, table(t, 1, 2))
	assert.ErrorIs(t, err, ErrUnknownRuleType)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register("sma_crossover", func(*data.PriceTable, Params) ([]bool, error) { return nil, nil })
	assert.Error(t, err)
}

func TestEvaluateSafe_FailClosed(t *testing.T) {
	reg := NewRegistry()
	pt := table(t, 1, 2, 3, 4)

	// Unknown type must degrade to an all-false series, not an error.
	got := reg.EvaluateSafe(zerolog.Nop(), Definition{Name: "x", Type: "no_such_rule"}, pt)
	require.Len(t, got, pt.Len())
	for _, v := range got {
		assert.False(t, v)
	}
}

func TestEvaluateSafe_RecoversPanic(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("panicky", func(*data.PriceTable, Params) ([]bool, error) {
		panic("boom")
	}))

	pt := table(t, 1, 2, 3)
	got := reg.EvaluateSafe(zerolog.Nop(), Definition{Name: "p", Type: "panicky"}, pt)
	require.Len(t, got, pt.Len())
	for _, v := range got {
		assert.False(t, v)
	}
}
