package scenario

import (
	"fmt"

	"github.com/inference-sim/desim/sim"
)

func init() {
	register(Scenario{
		Name:        "carwash",
		Description: "cars arriving at random intervals and sharing a few washing machines",
		Until:       func(cfg Config) float64 { return cfg.Carwash.Until },
		Setup:       setupCarwash,
	})
}

func setupCarwash(m *Model) error {
	cfg := m.Config.Carwash
	env := m.Env
	machines, err := sim.NewResource(env, cfg.Machines)
	if err != nil {
		return err
	}
	machines.SetName("carwash")
	arrivalRNG := m.RNG.ForSubsystem(SubsystemArrivals)
	serviceRNG := m.RNG.ForSubsystem(SubsystemService)

	var arrived, washed, maxInUse int
	var totalWait float64

	wash := func(car string) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			d := IntBetween(serviceRNG, cfg.WashTime-2, cfg.WashTime+2)
			if _, err := p.Wait(env.Timeout(float64(d))); err != nil {
				return nil, err
			}
			m.Logf("carwash removed %d%% of %s's dirt", IntBetween(serviceRNG, 50, 99), car)
			return nil, nil
		}
	}
	car := func(name string) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			arrived++
			m.Logf("%s arrives at the carwash", name)
			at := env.Now()
			req := machines.Request()
			defer func() { _ = machines.Release(req) }()
			if _, err := p.Wait(req); err != nil {
				return nil, err
			}
			totalWait += env.Now() - at
			maxInUse = max(maxInUse, machines.Count())
			m.Logf("%s enters the carwash", name)
			if _, err := p.Wait(env.Process("wash", wash(name))); err != nil {
				return nil, err
			}
			washed++
			m.Logf("%s leaves the carwash", name)
			return nil, nil
		}
	}

	env.Process("setup", func(p *sim.Process) (any, error) {
		i := 0
		for ; i < cfg.InitialCars; i++ {
			name := fmt.Sprintf("car %d", i)
			env.Process(name, car(name))
		}
		for ; ; i++ {
			gap := IntBetween(arrivalRNG, cfg.InterArrival-2, cfg.InterArrival+2)
			if _, err := p.Wait(env.Timeout(float64(max(gap, 0)))); err != nil {
				return nil, err
			}
			name := fmt.Sprintf("car %d", i)
			env.Process(name, car(name))
		}
	})

	m.AfterRun(func() {
		m.Stat("cars_arrived", float64(arrived))
		m.Stat("cars_washed", float64(washed))
		m.Stat("max_machines_in_use", float64(maxInUse))
		if entered := arrived - len(machines.Queue()); entered > 0 {
			m.Stat("mean_wait", totalWait/float64(entered))
		}
	})
	return nil
}
