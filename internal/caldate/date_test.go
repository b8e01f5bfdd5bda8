package caldate

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsInvalidText(t *testing.T) {
	d := Parse("2021-02-30")
	require.False(t, d.IsValid())
	assert.Equal(t, "2021-02-30", d.String())
	assert.Equal(t, "Invalid date", d.Format(DateLayout))

	ok := Parse("2021-06-20")
	require.True(t, ok.IsValid())
	assert.False(t, ok.HasTime())
	assert.Equal(t, "2021-06-20", ok.String())
}

func TestComparisonsIgnoreInvalid(t *testing.T) {
	a := MustParse("2023-01-01")
	bad := Invalid("nope")
	assert.False(t, a.Before(bad))
	assert.False(t, a.After(bad))
	assert.False(t, bad.Same(bad))
	assert.True(t, a.Same(New(2023, time.January, 1)))
}

func TestCompareOrdersPresentValidDatesFirst(t *testing.T) {
	early := Ptr(MustParse("2023-01-01"))
	late := Ptr(MustParse("2023-06-01"))
	bad := Ptr(Invalid("2023-13-01"))

	dates := []*Date{nil, bad, late, nil, early}
	sort.SliceStable(dates, func(i, j int) bool { return Compare(dates[i], dates[j]) < 0 })

	require.Len(t, dates, 5)
	assert.Same(t, early, dates[0])
	assert.Same(t, late, dates[1])
	assert.Same(t, bad, dates[2])
	assert.Nil(t, dates[3])
	assert.Nil(t, dates[4])
}

func TestCompareTies(t *testing.T) {
	assert.Equal(t, 0, Compare(nil, nil))
	assert.Equal(t, 0, Compare(Ptr(Invalid("x")), Ptr(Invalid("y"))))
	assert.Equal(t, 0, Compare(Ptr(MustParse("2023-01-01")), Ptr(New(2023, 1, 1))))
	assert.Equal(t, -1, Compare(Ptr(MustParse("2023-01-01")), nil))
	assert.Equal(t, 1, Compare(Ptr(Invalid("x")), Ptr(MustParse("2023-01-01"))))
}

func TestTextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2023-04-30 13:45")))
	assert.True(t, d.HasTime())
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2023-04-30 13:45", string(b))
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, "2024-02-29", MustParse("2024-01-31").AddMonths(1).String())
	assert.Equal(t, "2023-02-28", MustParse("2023-01-31").AddMonths(1).String())
	assert.Equal(t, "2024-02-29", MustParse("2024-03-31").AddMonths(-1).String())
	assert.Equal(t, "2025-01-15", MustParse("2024-11-15").AddMonths(2).String())
	assert.False(t, Invalid("2024-13-01").AddMonths(1).IsValid())
}
