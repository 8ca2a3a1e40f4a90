// Package testutil provides shared test infrastructure for the kernel and
// scenario test packages. It has no dependency on sim/ so that the kernel's
// own in-package tests can use it.
package testutil

import (
	"fmt"
	"math"
	"testing"
)

// Entry is one timestamped observation made by a process under test.
type Entry struct {
	Time  float64
	Label string
}

func (e Entry) String() string { return fmt.Sprintf("%g:%s", e.Time, e.Label) }

// Log collects observations in the order processes make them.
type Log struct {
	Entries []Entry
}

// Add records label at time t.
func (l *Log) Add(t float64, label string) {
	l.Entries = append(l.Entries, Entry{Time: t, Label: label})
}

// Addf records a formatted label at time t.
func (l *Log) Addf(t float64, format string, args ...any) {
	l.Add(t, fmt.Sprintf(format, args...))
}

// Labels returns the labels in recording order.
func (l *Log) Labels() []string {
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Label
	}
	return out
}

// Times returns the timestamps in recording order.
func (l *Log) Times() []float64 {
	out := make([]float64, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Time
	}
	return out
}

// Strings renders every entry as "time:label".
func (l *Log) Strings() []string {
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.String()
	}
	return out
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertNonDecreasing fails if values ever go down.
func AssertNonDecreasing(t *testing.T, name string, values []float64) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Errorf("%s: value[%d]=%v < value[%d]=%v", name, i, values[i], i-1, values[i-1])
		}
	}
}
