package recurrence

import "fmt"

// Frequency is the closed set of repeat rules a moment can carry.
type Frequency string

const (
	None    Frequency = "none"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Frequencies lists every valid Frequency in declaration order.
var Frequencies = []Frequency{None, Daily, Weekly, Monthly, Yearly}

// Valid reports whether f is a member of the closed set.
func (f Frequency) Valid() bool {
	switch f {
	case None, Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Repeating reports whether f produces more than one occurrence.
func (f Frequency) Repeating() bool {
	return f != None
}

func (f Frequency) String() string {
	return string(f)
}

// ParseFrequency converts a raw string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown repeat frequency %q", s)
	}
	return f, nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("unknown repeat frequency %q", string(f))
	}
	return []byte(f), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes
// as None.
func (f *Frequency) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = None
		return nil
	}
	parsed, err := ParseFrequency(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
