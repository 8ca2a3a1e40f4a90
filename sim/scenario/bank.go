package scenario

import (
	"fmt"

	"github.com/inference-sim/desim/sim"
)

func init() {
	register(Scenario{
		Name:        "bank-renege",
		Description: "bank customers who leave the queue once their patience runs out",
		Until:       func(cfg Config) float64 { return cfg.Bank.Until },
		Setup:       setupBank,
	})
}

func setupBank(m *Model) error {
	cfg := m.Config.Bank
	env := m.Env
	counter, err := sim.NewResource(env, cfg.Counters)
	if err != nil {
		return err
	}
	counter.SetName("counter")
	arrivalRNG := m.RNG.ForSubsystem(SubsystemArrivals)
	serviceRNG := m.RNG.ForSubsystem(SubsystemService)
	patienceRNG := m.RNG.ForSubsystem(SubsystemPatience)

	var arrived, served, finished, reneged int
	var maxRenegeWait, totalServedWait float64

	customer := func(name string) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			arrive := env.Now()
			arrived++
			m.Logf("%s: here I am", name)

			req := counter.Request()
			defer func() { _ = counter.Release(req) }()
			patience := Uniform(patienceRNG, cfg.MinPatience, cfg.MaxPatience)
			v, err := p.Wait(req.Or(env.Timeout(patience)))
			if err != nil {
				return nil, err
			}
			wait := env.Now() - arrive
			if !v.(*sim.ConditionValue).Contains(req) {
				reneged++
				maxRenegeWait = max(maxRenegeWait, wait)
				m.Logf("%s: RENEGED after %6.3f", name, wait)
				return nil, nil
			}

			served++
			totalServedWait += wait
			m.Logf("%s: waited %6.3f", name, wait)
			if _, err := p.Wait(env.Timeout(Exponential(serviceRNG, cfg.TimeInBank))); err != nil {
				return nil, err
			}
			finished++
			m.Logf("%s: finished", name)
			return nil, nil
		}
	}

	env.Process("source", func(p *sim.Process) (any, error) {
		for i := 0; i < cfg.Customers; i++ {
			name := fmt.Sprintf("customer%02d", i)
			env.Process(name, customer(name))
			if _, err := p.Wait(env.Timeout(Exponential(arrivalRNG, cfg.InterArrival))); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	m.AfterRun(func() {
		m.Stat("arrived", float64(arrived))
		m.Stat("served", float64(served))
		m.Stat("finished", float64(finished))
		m.Stat("reneged", float64(reneged))
		m.Stat("max_renege_wait", maxRenegeWait)
		if served > 0 {
			m.Stat("mean_served_wait", totalServedWait/float64(served))
		}
	})
	return nil
}
