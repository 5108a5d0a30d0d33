package date

import (
	"testing"
	"time"
)

func TestAppend(t *testing.T) {
	h := new(History[string])
	d1, v1 := New(2025, 07, 01), "25 Jul 1"
	d2, v2 := New(2024, 07, 01), "24 Jul 1"

	// Test is about appending two values in reverse order and checking that everything is
	// as expected at every step of the way.

	if h.Len() != 0 {
		t.Errorf("History.Len() = %v want 0", h.Len())
	}

	h.Append(d1, v1)
	if h.Len() != 1 {
		t.Errorf("Append(d1, v1).Len() = %v want 1", h.Len())
	}

	h.Append(d2, v2)
	if h.Len() != 2 {
		t.Errorf("Append(d2, v2).Len() = %v want 2", h.Len())
	}

	if h.days[1] != d1 {
		t.Errorf("history[1].day = %v want %v", h.days[1], d1)
	}
	if h.days[0] != d2 {
		t.Errorf("history[0].day = %v want %v", h.days[0], d2)
	}
	if h.values[1] != v1 {
		t.Errorf("history[1].value = %v want %v", h.values[1], v1)
	}
	if h.values[0] != v2 {
		t.Errorf("history[0].value = %v want %v", h.values[0], v2)
	}
}

func TestAppendSameDayOverwrites(t *testing.T) {
	h := new(History[int])
	on := New(2023, time.March, 3)
	h.Append(on, 1).Append(on, 2)

	if h.Len() != 1 {
		t.Fatalf("Len() = %v want 1", h.Len())
	}
	if v, _ := h.Get(on); v != 2 {
		t.Errorf("Get(%v) = %v want 2", on, v)
	}
}

func TestValueAsOf(t *testing.T) {
	h := new(History[string])
	h.Append(New(2023, time.January, 3), "jan3")
	h.Append(New(2023, time.January, 10), "jan10")

	testCases := []struct {
		on     Date
		want   string
		wantOK bool
	}{
		{New(2023, time.January, 2), "", false},
		{New(2023, time.January, 3), "jan3", true},
		{New(2023, time.January, 9), "jan3", true},
		{New(2023, time.January, 10), "jan10", true},
		{New(2024, time.January, 1), "jan10", true},
	}
	for _, tc := range testCases {
		got, ok := h.ValueAsOf(tc.on)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ValueAsOf(%v) = %q, %v want %q, %v", tc.on, got, ok, tc.want, tc.wantOK)
		}
	}
}
