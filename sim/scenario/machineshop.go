package scenario

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/desim/sim"
)

const (
	repairPriority   = 1
	otherJobPriority = 2
)

func init() {
	register(Scenario{
		Name:        "machine-shop",
		Description: "machines that break down and preempt a repairman's low-priority work",
		Until: func(cfg Config) float64 {
			return float64(cfg.MachineShop.Weeks) * 7 * 24 * 60
		},
		Setup: setupMachineShop,
	})
}

// machine produces parts until it breaks, then waits for the repairman.
type machine struct {
	name      string
	partsMade int
	repairs   int
	broken    bool
	working   *sim.Process
}

func setupMachineShop(m *Model) error {
	cfg := m.Config.MachineShop
	env := m.Env
	repairman, err := sim.NewPreemptiveResource(env, 1)
	if err != nil {
		return err
	}
	repairman.SetName("repairman")
	serviceRNG := m.RNG.ForSubsystem(SubsystemService)
	failureRNG := m.RNG.ForSubsystem(SubsystemFailures)

	machines := make([]*machine, cfg.Machines)
	for i := range machines {
		mc := &machine{name: fmt.Sprintf("machine %d", i)}
		machines[i] = mc
		mc.working = env.Process(mc.name, mc.work(env, repairman, cfg, serviceRNG))
		env.Process(mc.name+" breaker", mc.breakdowns(env, cfg, failureRNG))
	}

	var jobsDone, jobPreemptions int
	env.Process("other jobs", func(p *sim.Process) (any, error) {
		for {
			remaining := cfg.JobDuration
			for remaining > 0 {
				req := repairman.Request(sim.WithPriority(otherJobPriority), sim.Preemptible())
				if _, err := p.Wait(req); err != nil {
					_ = repairman.Release(req)
					if _, ok := sim.IsInterrupt(err); ok {
						jobPreemptions++
						continue
					}
					return nil, err
				}
				start := env.Now()
				_, err := p.Wait(env.Timeout(remaining))
				_ = repairman.Release(req)
				if _, ok := sim.IsInterrupt(err); ok {
					jobPreemptions++
					remaining -= env.Now() - start
					continue
				}
				if err != nil {
					return nil, err
				}
				remaining = 0
			}
			jobsDone++
		}
	})

	m.AfterRun(func() {
		m.Logf("machine shop results after %d weeks", cfg.Weeks)
		total := 0
		for _, mc := range machines {
			m.Logf("%s made %d parts", mc.name, mc.partsMade)
			m.Stat(mc.name+" parts", float64(mc.partsMade))
			total += mc.partsMade
		}
		m.Stat("parts_total", float64(total))
		m.Stat("other_jobs_done", float64(jobsDone))
		m.Stat("other_job_preemptions", float64(jobPreemptions))
	})
	return nil
}

func (mc *machine) work(env *sim.Environment, repairman *sim.Resource, cfg MachineShopConfig, rng *rand.Rand) sim.ProcessFunc {
	return func(p *sim.Process) (any, error) {
		for {
			remaining := max(Normal(rng, cfg.PartTimeMean, cfg.PartTimeSigma), 0)
			for remaining > 0 {
				start := env.Now()
				_, err := p.Wait(env.Timeout(remaining))
				if _, ok := sim.IsInterrupt(err); !ok {
					if err != nil {
						return nil, err
					}
					break
				}

				mc.broken = true
				remaining -= env.Now() - start
				logrus.Debugf("[t=%10.3f] %s broke, %.2f left on the part", env.Now(), mc.name, remaining)
				if err := mc.repair(p, repairman, cfg.RepairTime); err != nil {
					return nil, err
				}
				mc.broken = false
			}
			mc.partsMade++
		}
	}
}

func (mc *machine) repair(p *sim.Process, repairman *sim.Resource, repairTime float64) error {
	env := p.Env()
	req := repairman.Request(sim.WithPriority(repairPriority))
	defer func() { _ = repairman.Release(req) }()
	if _, err := p.Wait(req); err != nil {
		return err
	}
	if _, err := p.Wait(env.Timeout(repairTime)); err != nil {
		return err
	}
	mc.repairs++
	return nil
}

func (mc *machine) breakdowns(env *sim.Environment, cfg MachineShopConfig, rng *rand.Rand) sim.ProcessFunc {
	return func(p *sim.Process) (any, error) {
		for {
			if _, err := p.Wait(env.Timeout(Exponential(rng, cfg.MTTF))); err != nil {
				return nil, err
			}
			// Only a working machine can break.
			if !mc.broken {
				if err := mc.working.Interrupt("breakdown"); err != nil {
					return nil, err
				}
			}
		}
	}
}
