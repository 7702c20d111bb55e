package normalize

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		want          civil.Date
		wantLayout    DateLayout
		wantAmbiguous bool
	}{
		{name: "iso dash", raw: "2024-03-15", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutISODash},
		{name: "iso slash", raw: "2024/03/15", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutISOSlash},
		{name: "us slash", raw: "03/15/2024", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutUSSlash},
		{name: "lead over 12 is day first", raw: "15/03/2024", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutDaySlash},
		{name: "ambiguous slash defaults to month first", raw: "03/04/2024", want: civil.Date{Year: 2024, Month: time.March, Day: 4}, wantLayout: LayoutUSSlash, wantAmbiguous: true},
		{name: "equal groups are not ambiguous", raw: "04/04/2024", want: civil.Date{Year: 2024, Month: time.April, Day: 4}, wantLayout: LayoutUSSlash},
		{name: "day dash", raw: "15-03-2024", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutDayDash},
		{name: "single digit groups", raw: "3/5/2024", want: civil.Date{Year: 2024, Month: time.March, Day: 5}, wantLayout: LayoutUSSlash, wantAmbiguous: true},
		{name: "trailing time", raw: "2024-03-15T10:30:00Z", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutISODash},
		{name: "trailing time after space", raw: " 2024-03-15 10:30 ", want: civil.Date{Year: 2024, Month: time.March, Day: 15}, wantLayout: LayoutISODash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Date)
			assert.Equal(t, tt.wantLayout, got.Layout)
			assert.Equal(t, tt.wantAmbiguous, got.Ambiguous)
		})
	}
}

func TestNormalizeDate_Errors(t *testing.T) {
	for _, raw := range []string{"", "NULL", "March 15, 2024", "2024.03.15", "15/13/2024", "2024-02-30", "31-04-2024", "20240315"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NormalizeDate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDateFormat))
		})
	}
}

func TestNormalizeDate_CanonicalRoundTrip(t *testing.T) {
	start := civil.Date{Year: 2023, Month: time.January, Day: 1}
	for i := 0; i < 800; i += 7 {
		d := start.AddDays(i)
		got, err := NormalizeDate(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got.Date)
	}
}

func TestSlashDayFirstWhenLeadExceeds12(t *testing.T) {
	layout, ambiguous := SlashDayFirstWhenLeadExceeds12(13, 1)
	assert.Equal(t, LayoutDaySlash, layout)
	assert.False(t, ambiguous)

	layout, ambiguous = SlashDayFirstWhenLeadExceeds12(12, 13)
	assert.Equal(t, LayoutUSSlash, layout)
	assert.False(t, ambiguous)

	layout, ambiguous = SlashDayFirstWhenLeadExceeds12(1, 2)
	assert.Equal(t, LayoutUSSlash, layout)
	assert.True(t, ambiguous)
}
