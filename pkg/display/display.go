// Package display normalizes backend field values for presentation.
//
// Backend records are flat bags of optional strings. The UI expects every
// visible field to be populated, so blanks become "N/A", FileMan timestamps
// become readable dates, and SSNs are masked before they reach a log line.
package display

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the placeholder shown for missing values.
const NotAvailable = "N/A"

// DateLayout is the display layout for backend timestamps.
const DateLayout = "2006-01-02 15:04"

// NA returns s trimmed, or NotAvailable if s is blank.
func NA(s string) string {
	return Or(s, NotAvailable)
}

// Or returns s trimmed, or fallback if s is blank.
func Or(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

// FileManDate parses a FileMan date (YYYMMDD[.HHMMSS], year offset 1700).
// Missing time digits are right-padded, so "3240115.143" is 14:30:00.
func FileManDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	datePart, timePart, _ := strings.Cut(s, ".")
	if len(datePart) != 7 {
		return time.Time{}, fmt.Errorf("fileman date %q: want 7 date digits", s)
	}
	for _, r := range datePart + timePart {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("fileman date %q: non-digit", s)
		}
	}
	yyy, _ := strconv.Atoi(datePart[:3])
	month, _ := strconv.Atoi(datePart[3:5])
	day, _ := strconv.Atoi(datePart[5:7])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("fileman date %q: month/day out of range", s)
	}

	if len(timePart) > 6 {
		return time.Time{}, fmt.Errorf("fileman date %q: time too long", s)
	}
	timePart += strings.Repeat("0", 6-len(timePart))
	hour, _ := strconv.Atoi(timePart[:2])
	minute, _ := strconv.Atoi(timePart[2:4])
	sec, _ := strconv.Atoi(timePart[4:6])
	if hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("fileman date %q: time out of range", s)
	}

	t := time.Date(1700+yyy, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("fileman date %q: invalid day", s)
	}
	return t, nil
}

// DayLayout is used for FileMan values that carry no time of day.
const DayLayout = "2006-01-02"

// Date renders a backend timestamp for display. FileMan values are converted,
// date-only ones without a clock; anything else is passed through, and blanks
// become NotAvailable.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotAvailable
	}
	if t, err := FileManDate(s); err == nil {
		if !strings.Contains(s, ".") {
			return t.Format(DayLayout)
		}
		return t.Format(DateLayout)
	}
	return s
}

// readableLayouts are the non-FileMan forms the backend and this package emit.
var readableLayouts = []string{
	DateLayout,
	DayLayout,
	time.RFC3339,
	"01/02/2006 15:04",
	"01/02/2006",
	"Jan 02, 2006@15:04",
	"Jan 02, 2006",
}

// ParseTime reads a backend or display timestamp: FileMan, the display
// layouts, or the readable forms the backend passes through.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == NotAvailable {
		return time.Time{}, false
	}
	if t, err := FileManDate(s); err == nil {
		return t, true
	}
	for _, layout := range readableLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeSSN strips dashes and spaces. It returns false unless the result
// is exactly nine digits.
func NormalizeSSN(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '-' || r == ' ':
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", false
		}
	}
	out := b.String()
	return out, len(out) == 9
}

// MaskSSN keeps only the last four digits: "***-**-6789".
func MaskSSN(ssn string) string {
	digits, ok := NormalizeSSN(ssn)
	if !ok {
		if ssn == "" {
			return ""
		}
		return "***"
	}
	return "***-**-" + digits[5:]
}

// Last5 builds the CPRS short identifier: last-name initial plus last four of SSN.
func Last5(name, ssn string) string {
	digits, ok := NormalizeSSN(ssn)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + digits[5:]
}

// IsLast5 reports whether q looks like a last-5 identifier (A1234).
func IsLast5(q string) bool {
	if len(q) != 5 {
		return false
	}
	c := q[0]
	if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
		return false
	}
	for i := 1; i < 5; i++ {
		if q[i] < '0' || q[i] > '9' {
			return false
		}
	}
	return true
}

// Bool renders backend truthy flags ("1", "Y", "YES", "true") as a bool.
func Bool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "Y", "YES", "TRUE":
		return true
	}
	return false
}

// ToFileMan encodes t as a FileMan date-time (YYYMMDD.HHMMSS) with trailing
// zeros of the time part trimmed, the form the backend accepts on writes.
func ToFileMan(t time.Time) string {
	date := fmt.Sprintf("%03d%02d%02d", t.Year()-1700, int(t.Month()), t.Day())
	clock := strings.TrimRight(fmt.Sprintf("%02d%02d%02d", t.Hour(), t.Minute(), t.Second()), "0")
	if clock == "" {
		return date
	}
	return date + "." + clock
}
