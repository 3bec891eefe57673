package report

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2000, time.February, 29},
		{1900, time.February, 28},
		{2023, time.January, 31},
		{2023, time.April, 30},
		{2023, time.June, 30},
		{2023, time.September, 30},
		{2023, time.November, 30},
		{2023, time.December, 31},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestDaysInMonthMatchesTimePackage(t *testing.T) {
	for year := 1890; year <= 2110; year++ {
		for month := time.January; month <= time.December; month++ {
			want := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
			if got := DaysInMonth(year, month); got != want {
				t.Fatalf("DaysInMonth(%d, %s) = %d, want %d", year, month, got, want)
			}
		}
	}
}
