package scenario

import (
	"github.com/inference-sim/desim/sim"
)

func init() {
	register(Scenario{
		Name:        "event-latency",
		Description: "messages crossing a cable whose propagation delay lives outside sender and receiver",
		Until:       func(cfg Config) float64 { return cfg.EventLatency.Until },
		Setup:       setupEventLatency,
	})
}

// cable delays every message by a fixed amount before it becomes available.
type cable struct {
	env   *sim.Environment
	delay float64
	store *sim.Store
}

type message struct {
	sentAt float64
}

func newCable(env *sim.Environment, delay float64) (*cable, error) {
	store, err := sim.NewStore(env, sim.Unbounded)
	if err != nil {
		return nil, err
	}
	return &cable{env: env, delay: delay, store: store.SetName("cable")}, nil
}

// put starts a propagation process so the sender never blocks.
func (c *cable) put(msg message) {
	c.env.Process("propagate", func(p *sim.Process) (any, error) {
		if _, err := p.Wait(c.env.Timeout(c.delay)); err != nil {
			return nil, err
		}
		_, err := p.Wait(c.store.Put(msg))
		return nil, err
	})
}

func (c *cable) get() *sim.StoreGet { return c.store.Get() }

func setupEventLatency(m *Model) error {
	cfg := m.Config.EventLatency
	env := m.Env
	wire, err := newCable(env, cfg.CableDelay)
	if err != nil {
		return err
	}
	var sent, received int
	var totalLatency float64

	env.Process("sender", func(p *sim.Process) (any, error) {
		for {
			if _, err := p.Wait(env.Timeout(cfg.SendInterval)); err != nil {
				return nil, err
			}
			sent++
			wire.put(message{sentAt: env.Now()})
		}
	})
	env.Process("receiver", func(p *sim.Process) (any, error) {
		for {
			v, err := p.Wait(wire.get())
			if err != nil {
				return nil, err
			}
			msg := v.(message)
			received++
			totalLatency += env.Now() - msg.sentAt
			m.Logf("received message sent at %g", msg.sentAt)
		}
	})

	m.AfterRun(func() {
		m.Stat("sent", float64(sent))
		m.Stat("received", float64(received))
		if received > 0 {
			m.Stat("mean_latency", totalLatency/float64(received))
		}
	})
	return nil
}
