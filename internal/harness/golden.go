package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a trace as text, one line per entry:
//
//	<seq> <origin> <kind> [path] [reset]
//
// seq is "-" for entries that consumed none. Rejected steps show their
// kind as error(CODE).
func FormatTrace(name string, trace []TraceEvent) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	for _, ev := range trace {
		buf.WriteString(formatTraceLine(ev))
		buf.WriteByte('\n')
	}
	return []byte(buf.String())
}

func formatTraceLine(ev TraceEvent) string {
	seq := "-"
	if ev.Seq > 0 {
		seq = fmt.Sprint(ev.Seq)
	}
	kind := ev.Kind
	if ev.Kind == KindError {
		kind = fmt.Sprintf("error(%s)", ev.Code)
	}
	fields := []string{seq, ev.Origin, kind}
	if ev.Path != "" {
		fields = append(fields, ev.Path)
	}
	if ev.Reset {
		fields = append(fields, "reset")
	}
	return strings.Join(fields, " ")
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result.Trace))
}
