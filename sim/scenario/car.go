package scenario

import (
	"github.com/inference-sim/desim/sim"
)

func init() {
	register(Scenario{
		Name:        "car",
		Description: "a car alternating between driving and parking",
		Until:       func(cfg Config) float64 { return cfg.Car.Until },
		Setup:       setupCar,
	})
	register(Scenario{
		Name:        "airplane",
		Description: "an airplane whose charging wait is interrupted while the charger keeps running",
		Until:       func(cfg Config) float64 { return cfg.Airplane.Until },
		Setup:       setupAirplane,
	})
}

func setupCar(m *Model) error {
	cfg := m.Config.Car
	env := m.Env
	trips := 0
	env.Process("car", func(p *sim.Process) (any, error) {
		for {
			m.Logf("start driving")
			trips++
			if _, err := p.Wait(env.Timeout(cfg.TripDuration)); err != nil {
				return nil, err
			}
			m.Logf("start parking")
			if _, err := p.Wait(env.Timeout(cfg.ParkingDuration)); err != nil {
				return nil, err
			}
		}
	})
	m.AfterRun(func() { m.Stat("trips", float64(trips)) })
	return nil
}

func setupAirplane(m *Model) error {
	cfg := m.Config.Airplane
	env := m.Env
	var interrupted, charged int

	// charge outlives an interrupted wait: only the waiter is interrupted.
	charge := func(index int) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			if _, err := p.Wait(env.Timeout(cfg.ChargingDuration)); err != nil {
				return nil, err
			}
			charged++
			m.Logf("airplane %d finishes charging", index)
			return nil, nil
		}
	}

	airplane := env.Process("airplane", func(p *sim.Process) (any, error) {
		for index := 1; ; index++ {
			m.Logf("airplane %d starts trip", index)
			_, err := p.Wait(env.Timeout(cfg.TripDuration))
			if _, ok := sim.IsInterrupt(err); ok {
				interrupted++
				m.Logf("airplane %d trip interrupted", index)
				continue
			}
			if err != nil {
				return nil, err
			}
			m.Logf("airplane %d arrives in parking lot", index)
			m.Logf("airplane %d starts charging", index)
			_, err = p.Wait(env.Process("charge", charge(index)))
			if _, ok := sim.IsInterrupt(err); ok {
				interrupted++
				m.Logf("airplane %d charging interrupted", index)
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	})

	env.Process("interrupter", func(p *sim.Process) (any, error) {
		if _, err := p.Wait(env.Timeout(cfg.InterruptAt)); err != nil {
			return nil, err
		}
		return nil, airplane.Interrupt("operator")
	})

	m.AfterRun(func() {
		m.Stat("charges_completed", float64(charged))
		m.Stat("interrupts", float64(interrupted))
	})
	return nil
}
