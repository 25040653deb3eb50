package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSizeClass(t *testing.T) {
	tests := []struct {
		in      string
		want    SizeClass
		wantErr bool
	}{
		{in: "small", want: SizeSmall},
		{in: "Medium", want: SizeMedium},
		{in: " LARGE ", want: SizeLarge},
		{in: "1", want: SizeMedium},
		{in: "2", want: SizeLarge},
		{in: "3", wantErr: true},
		{in: "huge", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSizeClass(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSizeClassFits(t *testing.T) {
	assert.True(t, SizeSmall.Fits(SizeSmall))
	assert.True(t, SizeSmall.Fits(SizeLarge))
	assert.True(t, SizeMedium.Fits(SizeLarge))
	assert.False(t, SizeLarge.Fits(SizeMedium))
	assert.False(t, SizeMedium.Fits(SizeSmall))
}

func TestSizeClassString(t *testing.T) {
	assert.Equal(t, "medium", SizeMedium.String())
	assert.Equal(t, "SizeClass(7)", SizeClass(7).String())
	assert.False(t, SizeClass(-1).Valid())
}

func TestRatePolicyFromComplex(t *testing.T) {
	c := ParkingComplex{FlatRate: FlatRate{Rate: 40, Hours: 3}, DayRate: 5000, ContinuousHourThreshold: 1}
	p := c.RatePolicy()
	assert.Equal(t, 40.0, p.FlatRate.Rate)
	assert.Equal(t, 3.0, p.FlatRate.Hours)
	assert.Equal(t, 5000.0, p.DayRate)
	assert.Equal(t, 1.0, p.ContinuousHourThreshold)
}
