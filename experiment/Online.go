package experiment

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/samuelfneumann/godqn/agent/deepq"
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	"github.com/samuelfneumann/godqn/monitor"
	"github.com/samuelfneumann/godqn/solver"
)

// Online is an experiment that trains a DeepQ agent online on a single
// environment with Fit
type Online struct {
	env.Environment
	agent  *deepq.DeepQ
	fit    deepq.FitConfig
	logger zerolog.Logger
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. Monitoring sinks should already be
// registered with the agent.
func NewOnline(e env.Environment, a *deepq.DeepQ, fc deepq.FitConfig,
	logger zerolog.Logger) *Online {
	return &Online{Environment: e, agent: a, fit: fc, logger: logger}
}

// createEnv creates the environment an experiment trains on
var createEnv = func(c envconfig.Config, seed uint64) (env.Environment,
	error) {
	return c.Create(seed)
}

// Create builds the experiment described by the Config. Progress is
// drawn to progress if it is non-nil.
func (c Config) Create(seed uint64, logger zerolog.Logger,
	progress io.Writer) (*Online, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	e, err := createEnv(c.Env, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	o, err := c.createWith(e, seed, logger, progress)
	if err != nil {
		if closer, ok := e.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("could not close environment")
			}
		}
		return nil, fmt.Errorf("create: %w", err)
	}
	return o, nil
}

// createWith builds the experiment on an already created environment
func (c Config) createWith(e env.Environment, seed uint64,
	logger zerolog.Logger, progress io.Writer) (*Online, error) {
	actions, err := e.ActionSpec().Actions()
	if err != nil {
		return nil, err
	}

	netConfig := c.Network
	netConfig.Seed += seed
	net, err := netConfig.Create(e.ObservationSpec().Features(), actions)
	if err != nil {
		return nil, err
	}

	// Solvers carry state, so each experiment steps with its own
	opt, err := solver.NewOptimizer(c.Solver.Clone(), net)
	if err != nil {
		return nil, err
	}
	lossFn, err := c.Loss.Create()
	if err != nil {
		return nil, err
	}

	agentConfig := c.Agent
	agentConfig.Seed += seed
	agent, err := deepq.NewFromEnv(e, net, opt, lossFn, agentConfig)
	if err != nil {
		return nil, err
	}
	agent.SetLogger(logger)

	sinks, err := c.Monitor.sinks(c.Fit.Episodes, logger, progress)
	if err != nil {
		return nil, err
	}
	for _, s := range sinks {
		agent.Register(s)
	}

	logger.Info().
		Str("env", string(c.Env.Environment)).
		Str("net", net.String()).
		Str("solver", string(c.Solver.Type)).
		Str("loss", lossFn.String()).
		Uint64("seed", seed).
		Msg("created experiment")
	return NewOnline(e, agent, c.Fit, logger), nil
}

// sinks creates the monitoring sinks described by the MonitorConfig.
// The HTTP server is started first so that a failure to listen leaves
// no other sink to clean up.
func (m MonitorConfig) sinks(episodes int, logger zerolog.Logger,
	progress io.Writer) ([]monitor.Sink, error) {
	var sinks []monitor.Sink
	if m.HTTPAddr != "" {
		h := monitor.NewHTTP(logger)
		if _, err := h.Serve(m.HTTPAddr); err != nil {
			return nil, err
		}
		sinks = append(sinks, h)
	}

	if m.PlotFile != "" {
		p, err := m.plot()
		if err != nil {
			monitor.Multi(sinks).Close()
			return nil, err
		}
		sinks = append(sinks, p)
	}
	if m.Log {
		sinks = append(sinks, monitor.NewLog(logger))
	}
	if progress != nil {
		sinks = append(sinks, monitor.NewProgress(progress, episodes,
			time.Second))
	}
	if m.ReturnsFile != "" {
		sinks = append(sinks, monitor.NewTracker(m.ReturnsFile))
	}
	return sinks, nil
}

func (m MonitorConfig) plot() (*monitor.Plot, error) {
	rule, err := m.plotRule()
	if err != nil {
		return nil, err
	}
	return monitor.NewPlot(m.PlotFile, rule)
}

// Agent returns the agent trained by the experiment
func (o *Online) Agent() *deepq.DeepQ {
	return o.agent
}

// Run trains the agent for all episodes and returns the return of each
// episode. Monitoring sinks and the environment, if it can be closed,
// are closed once training stops.
func (o *Online) Run() ([]float64, error) {
	start := time.Now()
	returns, err := o.agent.Fit(o.Environment, o.fit)

	if cerr := o.agent.Close(); cerr != nil {
		o.logger.Warn().Err(cerr).Msg("could not close monitoring sinks")
	}
	if closer, ok := o.Environment.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			o.logger.Warn().Err(cerr).Msg("could not close environment")
		}
	}
	if err != nil {
		return returns, fmt.Errorf("run: %w", err)
	}

	ev := o.logger.Info().
		Int("episodes", len(returns)).
		Dur("elapsed", time.Since(start))
	if len(returns) > 0 {
		ev = ev.Float64("final_return", returns[len(returns)-1])
	}
	ev.Msg("experiment finished")
	return returns, nil
}
