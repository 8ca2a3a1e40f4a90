package testutil

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares lines against testdata/golden/<name>.golden.
// Run with -update to rewrite the fixture.
func AssertGolden(t *testing.T, name string, lines []string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(strings.Join(lines, "\n")+"\n"))
}
