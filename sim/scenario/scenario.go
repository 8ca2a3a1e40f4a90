// Package scenario provides ready-made simulation models built on the sim
// kernel: the parking car, the interrupted airplane, three fuel stations,
// a propagation-delay cable, a carwash, bank and cinema queues with
// reneging customers, and a machine shop with preemptive repairs.
//
// Every model is registered by name and driven through Run, which wires a
// fresh Environment, a PartitionedRNG seeded from Config.Seed, and a
// Transcript of timestamped lines.
package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/desim/sim"
)

// Scenario is a named, self-contained model.
type Scenario struct {
	Name        string
	Description string
	// Until returns the default run horizon for cfg; 0 runs to completion.
	Until func(cfg Config) float64
	// Setup creates the model's entities and processes on m.Env.
	Setup func(m *Model) error
}

var registry = map[string]Scenario{}

func register(sc Scenario) {
	if _, dup := registry[sc.Name]; dup {
		panic(fmt.Sprintf("register: duplicate scenario %q", sc.Name))
	}
	registry[sc.Name] = sc
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the scenario registered under name.
func Lookup(name string) (Scenario, bool) {
	sc, ok := registry[name]
	return sc, ok
}

// Stat is one named figure reported by a scenario.
type Stat struct {
	Name  string
	Value float64
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario   string
	Seed       int64
	Until      float64 // horizon used; 0 when run to completion
	EndTime    float64
	Steps      int64
	Transcript []string
	Stats      []Stat
}

// Stat returns the named figure.
func (r *Result) Stat(name string) (float64, bool) {
	for _, s := range r.Stats {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

// Model is the state a scenario's Setup builds on.
type Model struct {
	Env    *sim.Environment
	Config Config
	RNG    *PartitionedRNG

	name       string
	transcript []string
	stats      []Stat
	afterRun   []func()
}

// Logf appends a line stamped with the current simulation time.
func (m *Model) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	m.transcript = append(m.transcript, fmt.Sprintf("%7.2f %s", m.Env.Now(), msg))
	logrus.Debugf("[%s t=%10.3f] %s", m.name, m.Env.Now(), msg)
}

// Stat records a named figure for the result.
func (m *Model) Stat(name string, value float64) {
	m.stats = append(m.stats, Stat{Name: name, Value: value})
}

// AfterRun registers fn to be called once the run has stopped, in
// registration order. Scenarios use it to report final figures.
func (m *Model) AfterRun(fn func()) {
	m.afterRun = append(m.afterRun, fn)
}

// Run executes the named scenario with cfg. Extra options are applied to the
// Environment (for example sim.WithTrace).
func Run(name string, cfg Config, opts ...sim.EnvOption) (*Result, error) {
	sc, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q; valid: %s", name, strings.Join(Names(), ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}

	env := sim.NewEnvironment(opts...)
	defer func() {
		if err := env.Close(); err != nil {
			logrus.Warnf("closing %s environment: %v", name, err)
		}
	}()
	m := &Model{
		Env:    env,
		Config: cfg,
		RNG:    NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		name:   name,
	}
	if err := sc.Setup(m); err != nil {
		return nil, fmt.Errorf("setting up %s: %w", name, err)
	}

	until := cfg.Until
	if until == 0 && sc.Until != nil {
		until = sc.Until(cfg)
	}
	logrus.Infof("running scenario %s (seed %d, until %v)", name, cfg.Seed, until)
	var err error
	if until > 0 {
		err = env.RunUntil(until)
	} else {
		err = env.Run()
	}
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	for _, fn := range m.afterRun {
		fn()
	}

	return &Result{
		Scenario:   name,
		Seed:       cfg.Seed,
		Until:      until,
		EndTime:    env.Now(),
		Steps:      env.Steps(),
		Transcript: m.transcript,
		Stats:      m.stats,
	}, nil
}
