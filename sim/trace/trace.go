package trace

import "github.com/google/uuid"

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelProcesses captures process starts and finishes only.
	TraceLevelProcesses TraceLevel = "processes"
	// TraceLevelEvents captures every processed event as well.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelProcesses: true,
	TraceLevelEvents:    true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level     TraceLevel
	MaxEvents int // cap on stored event records; 0 = unlimited
}

// SimulationTrace collects records during a simulation run.
type SimulationTrace struct {
	RunID     string
	Config    TraceConfig
	Events    []EventRecord
	Processes []ProcessRecord
	Dropped   int64 // event records not stored because of MaxEvents
}

// NewSimulationTrace creates a SimulationTrace ready for recording,
// tagged with a fresh run identifier.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		RunID:     uuid.NewString(),
		Config:    config,
		Events:    make([]EventRecord, 0),
		Processes: make([]ProcessRecord, 0),
	}
}

// RecordEvent appends a processed-event record when the level asks for it.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	if st.Config.Level != TraceLevelEvents {
		return
	}
	if st.Config.MaxEvents > 0 && len(st.Events) >= st.Config.MaxEvents {
		st.Dropped++
		return
	}
	st.Events = append(st.Events, record)
}

// RecordProcess appends a process lifecycle record.
func (st *SimulationTrace) RecordProcess(record ProcessRecord) {
	if st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return
	}
	st.Processes = append(st.Processes, record)
}
