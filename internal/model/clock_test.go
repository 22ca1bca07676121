package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	got, err := ParseClock("14:00")
	require.NoError(t, err)
	assert.Equal(t, "14:00:00", got)

	got, err = ParseClock(" 19:30:00 ")
	require.NoError(t, err)
	assert.Equal(t, "19:30:00", got)

	_, err = ParseClock("7pm")
	assert.Error(t, err)
	assert.Equal(t, "19:30", ShortClock("19:30:00"))
}

func TestCents(t *testing.T) {
	assert.Equal(t, "12.50", FormatCents(1250))
	assert.Equal(t, "25.00", FormatCents(2500))
	assert.Equal(t, "0.05", FormatCents(5))

	cases := map[string]uint32{"12.5": 1250, "14": 1400, "14.00": 1400, "0.05": 5, ".5": 50}
	for in, want := range cases {
		got, err := ParseCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "abc", "1.234", "-3", "50000000", "42949672.96"} {
		_, err := ParseCents(bad)
		assert.Error(t, err, bad)
	}

	got, err := ParseCents("42949672.95")
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), got)
}

func TestMulCents(t *testing.T) {
	total, ok := MulCents(1250, 3)
	assert.True(t, ok)
	assert.Equal(t, uint32(3750), total)

	_, ok = MulCents(120000000, 40)
	assert.False(t, ok)
	_, ok = MulCents(1250, -1)
	assert.False(t, ok)
}

func TestMovieWindow(t *testing.T) {
	day, _ := ParseDay("2025-03-10")
	m := Movie{ReleaseDate: day.AddDate(0, 0, -1), EndDate: day}
	assert.True(t, m.NowShowing(day.Add(15*time.Hour)))
	assert.False(t, m.ComingSoon(day))

	soon := Movie{ReleaseDate: day.AddDate(0, 0, 3), EndDate: day.AddDate(0, 1, 0)}
	assert.False(t, soon.NowShowing(day))
	assert.True(t, soon.ComingSoon(day))
}

func TestShowtimeCovers(t *testing.T) {
	start, _ := ParseDay("2025-03-10")
	st := Showtime{StartDate: start, EndDate: start.AddDate(0, 0, 10)}
	assert.True(t, st.Covers(start))
	assert.True(t, st.Covers(start.AddDate(0, 0, 10)))
	assert.False(t, st.Covers(start.AddDate(0, 0, 11)))
	assert.False(t, st.Covers(start.AddDate(0, 0, -1)))
}
