package scenario

import (
	"github.com/inference-sim/desim/sim"
)

func init() {
	register(Scenario{
		Name:        "movie-renege",
		Description: "a ticket counter where a sold-out signal sends the whole queue home",
		Until:       func(cfg Config) float64 { return cfg.Movie.Until },
		Setup:       setupMovie,
	})
}

// theater is the shared state of the movie scenario.
type theater struct {
	counter     *sim.Resource
	available   map[string]int
	sold        map[string]int
	soldOut     map[string]*sim.Event
	whenSoldOut map[string]float64
	renegers    map[string]int
}

func setupMovie(m *Model) error {
	cfg := m.Config.Movie
	env := m.Env
	counter, err := sim.NewResource(env, 1)
	if err != nil {
		return err
	}
	th := &theater{
		counter:     counter.SetName("ticket counter"),
		available:   make(map[string]int, len(cfg.Movies)),
		sold:        make(map[string]int, len(cfg.Movies)),
		soldOut:     make(map[string]*sim.Event, len(cfg.Movies)),
		whenSoldOut: make(map[string]float64, len(cfg.Movies)),
		renegers:    make(map[string]int, len(cfg.Movies)),
	}
	for _, movie := range cfg.Movies {
		th.available[movie] = cfg.Tickets
		th.soldOut[movie] = env.NamedEvent(movie + " sold out")
	}
	arrivalRNG := m.RNG.ForSubsystem(SubsystemArrivals)

	moviegoer := func(movie string, tickets int) sim.ProcessFunc {
		return func(p *sim.Process) (any, error) {
			turn := th.counter.Request()
			defer func() { _ = th.counter.Release(turn) }()

			// Wait for our turn or until the movie is sold out.
			v, err := p.Wait(turn.Or(th.soldOut[movie]))
			if err != nil {
				return nil, err
			}
			if !v.(*sim.ConditionValue).Contains(turn) {
				th.renegers[movie]++
				return nil, nil
			}

			if th.available[movie] < tickets {
				// Argue with the teller, then leave.
				_, err := p.Wait(env.Timeout(0.5))
				return nil, err
			}
			th.available[movie] -= tickets
			th.sold[movie] += tickets
			if th.available[movie] < 2 {
				if err := th.soldOut[movie].Succeed(nil); err != nil {
					return nil, err
				}
				th.whenSoldOut[movie] = env.Now()
				th.available[movie] = 0
				m.Logf("movie %q sold out", movie)
			}
			_, err = p.Wait(env.Timeout(1))
			return nil, err
		}
	}

	env.Process("arrivals", func(p *sim.Process) (any, error) {
		for {
			if _, err := p.Wait(env.Timeout(Exponential(arrivalRNG, cfg.InterArrival))); err != nil {
				return nil, err
			}
			movie := cfg.Movies[arrivalRNG.Intn(len(cfg.Movies))]
			tickets := IntBetween(arrivalRNG, 1, cfg.MaxPerBuyer)
			if th.available[movie] > 0 {
				env.Process("moviegoer", moviegoer(movie, tickets))
			}
		}
	})

	m.AfterRun(func() {
		for _, movie := range cfg.Movies {
			m.Stat(movie+" tickets_sold", float64(th.sold[movie]))
			m.Stat(movie+" renegers", float64(th.renegers[movie]))
			if !th.soldOut[movie].Triggered() {
				continue
			}
			m.Stat(movie+" sold_out_at", th.whenSoldOut[movie])
			m.Logf("movie %q sold out %.1f minutes after ticket counter opening", movie, th.whenSoldOut[movie])
			m.Logf("  number of people leaving queue when film sold out: %d", th.renegers[movie])
		}
	})
	return nil
}
