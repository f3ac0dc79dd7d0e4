package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
	}{
		{"09:15 AM", TimeOfDay{9, 15}},
		{"9:15 AM", TimeOfDay{9, 15}},
		{"02:45 pm", TimeOfDay{14, 45}},
		{"12:00 AM", TimeOfDay{0, 0}},
		{"12:30 AM", TimeOfDay{0, 30}},
		{"12:00 PM", TimeOfDay{12, 0}},
		{"12:45 PM", TimeOfDay{12, 45}},
		{" 07:45  PM ", TimeOfDay{19, 45}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLabelRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "09:15", "13:00 PM", "9:75 AM", "noon", "09:15AM"} {
		_, err := ParseLabel(in)
		assert.ErrorIs(t, err, ErrInvalidTime, in)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	assert.Equal(t, "09:00 AM", TimeOfDay{9, 0}.Label())
	assert.Equal(t, "02:15 PM", TimeOfDay{14, 15}.Label())
	assert.Equal(t, "12:00 PM", TimeOfDay{12, 0}.Label())
	assert.Equal(t, "12:00 AM", TimeOfDay{0, 0}.Label())

	got, err := NormalizeLabel("9:30 am")
	require.NoError(t, err)
	assert.Equal(t, "09:30 AM", got)
}

func TestDailyCatalog(t *testing.T) {
	require.Len(t, Daily.Windows, 3)

	morning := Daily.Windows[0].Labels()
	assert.Equal(t, "09:00 AM", morning[0])
	assert.Equal(t, "11:30 AM", morning[len(morning)-1])
	assert.Len(t, morning, 11)

	afternoon := Daily.Windows[1].Labels()
	assert.Equal(t, []string{"02:00 PM", "02:15 PM", "02:30 PM", "02:45 PM", "03:00 PM", "03:15 PM", "03:30 PM", "03:45 PM"}, afternoon)

	evening := Daily.Windows[2].Labels()
	assert.Equal(t, "06:00 PM", evening[0])
	assert.Equal(t, "07:45 PM", evening[len(evening)-1])

	assert.Len(t, Daily.Labels(), 27)
}

func TestListingCatalog(t *testing.T) {
	labels := Listing.Labels()
	require.Len(t, labels, 16)
	assert.Equal(t, "09:00 AM", labels[0])
	assert.Equal(t, "12:00 PM", labels[6])
	assert.Equal(t, "04:30 PM", labels[len(labels)-1])
}

func TestContainsAndOffered(t *testing.T) {
	assert.True(t, Daily.Contains("09:15 AM"))
	assert.True(t, Daily.Contains("9:15 AM"))
	assert.False(t, Daily.Contains("12:00 PM"))
	assert.True(t, Listing.Contains("12:00 PM"))
	assert.False(t, Listing.Contains("09:15 AM"))

	assert.True(t, Offered("12:30 PM", Daily, Listing))
	assert.False(t, Offered("08:00 PM", Daily, Listing))
	assert.False(t, Offered("junk", Daily, Listing))
}

func TestInstantAndDates(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	day, err := ParseDate("2025-06-10")
	require.NoError(t, err)

	at, err := Instant(day, "02:15 PM", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 14, 15, 0, 0, loc), at)

	_, err = ParseDate("10/06/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)

	// 20:00 UTC is already the next day in Kolkata.
	now := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-11", FormatDate(Today(now, loc)))
	assert.True(t, SameDate(Today(now, time.UTC), day))
}
