package date

import "fmt"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// Year returns the calendar year range, January 1st to December 31st.
func Year(year int) Range {
	return Range{From: StartOfYear(year), To: StartOfYear(year + 1).Add(-1)}
}

// After returns the range of days strictly after 'after' up to and including 'through'.
func After(after, through Date) Range {
	return Range{From: after.Add(1), To: through}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
