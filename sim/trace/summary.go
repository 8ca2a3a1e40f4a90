package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	RunID            string
	TotalEvents      int
	FailedEvents     int
	DroppedEvents    int64
	LastEventTime    float64
	KindDistribution map[string]int // event kind → count processed
	ProcessesStarted int
	ProcessesDone    int
	ProcessesFailed  int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.RunID = st.RunID
	summary.TotalEvents = len(st.Events)
	summary.DroppedEvents = st.Dropped
	for _, e := range st.Events {
		summary.KindDistribution[e.Kind]++
		if e.Failed {
			summary.FailedEvents++
		}
		if e.Time > summary.LastEventTime {
			summary.LastEventTime = e.Time
		}
	}

	for _, p := range st.Processes {
		switch p.Status {
		case "running":
			summary.ProcessesStarted++
		case "done":
			summary.ProcessesDone++
		case "failed":
			summary.ProcessesFailed++
		}
	}

	return summary
}
