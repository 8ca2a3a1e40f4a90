package scenario

import (
	"fmt"

	"github.com/inference-sim/desim/sim"
)

func init() {
	register(Scenario{
		Name:        "fuel-resource",
		Description: "cars queueing for a limited number of pumps",
		Setup:       setupFuelResource,
	})
	register(Scenario{
		Name:        "fuel-store",
		Description: "cars parking in a bounded station store and leaving in FIFO order",
		Setup:       setupFuelStore,
	})
	register(Scenario{
		Name:        "fuel-container",
		Description: "cars drawing fuel from a tank that is topped up periodically",
		Until:       func(cfg Config) float64 { return cfg.FuelStation.Until },
		Setup:       setupFuelContainer,
	})
}

// arrivals starts car(i) for i = 1..n, one every interval time units.
func arrivals(m *Model, n int, interval float64, car func(index int) sim.ProcessFunc) {
	env := m.Env
	env.Process("arrivals", func(p *sim.Process) (any, error) {
		for i := 1; i <= n; i++ {
			env.Process(fmt.Sprintf("car %d", i), car(i))
			if _, err := p.Wait(env.Timeout(interval)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

func setupFuelResource(m *Model) error {
	cfg := m.Config.FuelStation
	env := m.Env
	pumps, err := sim.NewResource(env, cfg.Pumps)
	if err != nil {
		return err
	}
	pumps.SetName("pumps")
	var served int
	var totalWait float64

	arrivals(m, cfg.Cars, cfg.InterArrival, func(index int) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			m.Logf("car %d arriving", index)
			arrived := env.Now()
			req := pumps.Request()
			defer func() { _ = pumps.Release(req) }()
			if _, err := p.Wait(req); err != nil {
				return nil, err
			}
			totalWait += env.Now() - arrived
			m.Logf("car %d starting to charge", index)
			if _, err := p.Wait(env.Timeout(cfg.ChargingDuration)); err != nil {
				return nil, err
			}
			served++
			m.Logf("car %d leaving the station", index)
			return nil, nil
		}
	})

	m.AfterRun(func() {
		m.Stat("cars_served", float64(served))
		if served > 0 {
			m.Stat("mean_wait", totalWait/float64(served))
		}
	})
	return nil
}

func setupFuelStore(m *Model) error {
	cfg := m.Config.FuelStation
	env := m.Env
	station, err := sim.NewStore(env, cfg.Pumps)
	if err != nil {
		return err
	}
	station.SetName("station")
	var left int

	arrivals(m, cfg.Cars, cfg.InterArrival, func(index int) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			m.Logf("car %d arriving", index)
			if _, err := p.Wait(station.Put(index)); err != nil {
				return nil, err
			}
			m.Logf("car %d starting to charge", index)
			m.Logf("in the station: %v", station.Items())
			if _, err := p.Wait(env.Timeout(cfg.ChargingDuration)); err != nil {
				return nil, err
			}
			// The store is FIFO: whoever parked first leaves first.
			out, err := p.Wait(station.Get())
			if err != nil {
				return nil, err
			}
			left++
			m.Logf("car %v leaving the station", out)
			return nil, nil
		}
	})

	m.AfterRun(func() {
		m.Stat("cars_left", float64(left))
		m.Stat("cars_parked", float64(station.Len()))
	})
	return nil
}

func setupFuelContainer(m *Model) error {
	cfg := m.Config.FuelStation
	env := m.Env
	tank, err := sim.NewContainer(env, cfg.TankCapacity, 0)
	if err != nil {
		return err
	}
	tank.SetName("tank")
	var refills int
	var delivered float64

	env.Process("arrivals", func(p *sim.Process) (any, error) {
		env.Process("tanker", func(p *sim.Process) (any, error) {
			for {
				if need := tank.Capacity() - tank.Level(); need > 0 {
					// Not waited on: the tanker keeps its schedule even
					// when the put has to queue.
					tank.Put(need)
					refills++
					delivered += need
					m.Logf("station refilled with %g", need)
				}
				if _, err := p.Wait(env.Timeout(cfg.RefillInterval)); err != nil {
					return nil, err
				}
			}
		})
		for i := 1; i <= cfg.Cars; i++ {
			index := i
			env.Process(fmt.Sprintf("car %d", index), func(p *sim.Process) (any, error) {
				m.Logf("car %d arriving", index)
				if _, err := p.Wait(tank.Get(cfg.FuelPerCar)); err != nil {
					return nil, err
				}
				m.Logf("car %d starting to charge", index)
				m.Logf("fuel left: %g", tank.Level())
				if _, err := p.Wait(env.Timeout(cfg.ChargingDuration)); err != nil {
					return nil, err
				}
				m.Logf("car %d leaving the station", index)
				return nil, nil
			})
			if _, err := p.Wait(env.Timeout(cfg.InterArrival)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	m.AfterRun(func() {
		m.Stat("refills", float64(refills))
		m.Stat("fuel_delivered", delivered)
		m.Stat("level", tank.Level())
	})
	return nil
}
