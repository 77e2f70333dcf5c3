package ck3date

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	if _, ok := New(800, 0, 3); ok {
		t.Fatal("month 0 should be invalid")
	}
	if _, ok := New(800, 1, 0); ok {
		t.Fatal("day 0 should be invalid")
	}
	if _, ok := New(800, 13, 1); ok {
		t.Fatal("month 13 should be invalid")
	}
	if _, ok := New(800, 12, 32); ok {
		t.Fatal("day 32 should be invalid")
	}
	if _, ok := New(2020, 2, 29); ok {
		t.Fatal("feb 29 should be invalid under the non-leap calendar")
	}
	d, ok := New(1444, 11, 11)
	if !ok {
		t.Fatal("expected valid date")
	}
	if d.Year() != 1444 || d.Month() != 11 || d.Day() != 11 {
		t.Fatalf("unexpected date: %+v", d)
	}
}

func TestParseRoundtrip(t *testing.T) {
	cases := []string{
		"1400.1.2",
		"1457.3.5",
		"1.1.1",
		"1444.11.11",
		"1444.11.30",
		"1444.2.19",
	}
	for _, c := range cases {
		d, ok := Parse(c)
		if !ok {
			t.Fatalf("failed to parse %q", c)
		}
		if got := d.String(); got != c {
			t.Errorf("String() = %q, want %q", got, c)
		}
	}
}

func TestISO8601(t *testing.T) {
	d, ok := Parse("1400.1.2")
	if !ok {
		t.Fatal("parse failed")
	}
	if diff := cmp.Diff("1400-01-02", d.ISO8601()); diff != "" {
		t.Errorf("ISO8601 mismatch (-want +got):\n%s", diff)
	}
}

func TestAddDaysAcrossMonth(t *testing.T) {
	d, _ := Parse("1400.1.2")
	end := d.AddDays(30)
	if diff := cmp.Diff("1400.2.1", end.String()); diff != "" {
		t.Errorf("AddDays mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHoursKnownFixtures(t *testing.T) {
	cases := []struct {
		hours int32
		want  string
	}{
		{56379360, "1436-01-01"},
		{59611248, "1804-12-09"},
		{57781584, "1596-01-27"},
		{57775944, "1595-06-06"},
		{43808760, "0001-01-01"},
	}
	for _, c := range cases {
		d, ok := FromHours(c.hours)
		if !ok {
			t.Fatalf("FromHours(%d) failed", c.hours)
		}
		if got := d.ISO8601(); got != c.want {
			t.Errorf("FromHours(%d).ISO8601() = %q, want %q", c.hours, got, c.want)
		}
	}
}

func TestNovemberRegression(t *testing.T) {
	base, _ := FromHours(56379360)
	cases := []struct {
		add  int32
		want string
	}{
		{303, "1436-10-31"},
		{304, "1436-11-01"},
		{303 - 30, "1436-10-01"},
		{303 - 31, "1436-09-30"},
		{303 - 31 - 29, "1436-09-01"},
		{303 - 31 - 30, "1436-08-31"},
	}
	for _, c := range cases {
		if got := base.AddDays(c.add).ISO8601(); got != c.want {
			t.Errorf("AddDays(%d).ISO8601() = %q, want %q", c.add, got, c.want)
		}
	}
}

func TestDaysUntilAntisymmetric(t *testing.T) {
	d1, _ := Parse("1400.1.1")
	d2, _ := Parse("1401.12.31")
	if got := d1.DaysUntil(d2); got != 729 {
		t.Errorf("DaysUntil = %d, want 729", got)
	}
	if got := d2.DaysUntil(d1); got != -729 {
		t.Errorf("reverse DaysUntil = %d, want -729", got)
	}
}

func TestDaysUntilAdditiveRoundtrip(t *testing.T) {
	d, _ := Parse("1400.1.2")
	for i := int32(0); i < 364; i++ {
		next := d.AddDays(i)
		if got := d.DaysUntil(next); got != i {
			t.Errorf("AddDays(%d) then DaysUntil = %d, want %d", i, got, i)
		}
	}
}

func TestIsDateHeuristic(t *testing.T) {
	if IsDate(0) {
		t.Error("0 should not look like a date")
	}
	d, ok := FromHours(56379360)
	if !ok || !IsDate(56379360) {
		t.Errorf("56379360 should look like a date, got date=%v ok=%v", d, ok)
	}
}
