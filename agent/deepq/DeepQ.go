// Package deepq implements a deep Q-learning agent with an experience
// replay buffer and a target network, trained episode by episode.
package deepq

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/godqn/cadence"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/expreplay"
	"github.com/samuelfneumann/godqn/monitor"
	"github.com/samuelfneumann/godqn/network"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// Network is an action value estimator which can be trained. Given an
// upstream gradient of some loss with respect to its predictions,
// Backward accumulates the gradient of that loss with respect to the
// Network's parameters.
type Network interface {
	network.Estimator
	Backward(states, outGrad *mat.Dense) error
}

// Optimizer adjusts the parameters of a Network using the gradients
// accumulated by Backward
type Optimizer interface {
	ZeroGrad()
	Step() error
}

// LossFunction returns the mean loss between a target and prediction
// and the gradient of that loss with respect to prediction. A target
// with a single column is broadcast against every column of prediction.
type LossFunction interface {
	Loss(target, prediction *mat.Dense) (float64, *mat.Dense, error)
}

// DeepQ implements the deep Q-learning algorithm. Actions are selected
// epsilon-greedily with respect to an online network, which is trained
// on transitions sampled from a replay buffer towards the TD target
//
//	r + γ * max_a' Q_target(s', a')
//
// computed by a separate target network. The target network is a clone
// of the online network and is only changed by Sync.
type DeepQ struct {
	online Network
	target network.Estimator
	opt    Optimizer
	lossFn LossFunction

	replay     *expreplay.Buffer
	numActions int

	gamma        float64
	epsilon      float64
	tau          float64
	syncKind     cadence.Kind
	lossTarget   LossTarget
	maskTerminal bool

	rng *rand.Rand

	sinks  []monitor.Sink
	logger zerolog.Logger

	lastLoss   float64
	trainSteps int
}

// New creates and returns a new DeepQ agent which trains net with opt
// to minimize lossFn. The network must predict numActions action values
// for each state. The target network is created as a clone of net.
func New(net Network, opt Optimizer, lossFn LossFunction, numActions int,
	c Config) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if net == nil || opt == nil || lossFn == nil {
		return nil, fmt.Errorf("new: network, optimizer, and loss " +
			"function must be non-nil")
	}
	if numActions < 1 {
		return nil, fmt.Errorf("new: number of actions must be positive "+
			"\n\twant(>0) \n\thave(%v)", numActions)
	}

	target, err := net.Clone()
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %w",
			err)
	}

	// Sampling draws from a different stream than exploration
	replayConfig := expreplay.Config{Capacity: c.Capacity, Seed: c.Seed + 1}
	replay, err := replayConfig.Create()
	if err != nil {
		return nil, fmt.Errorf("new: could not create experience replay "+
			"buffer: %w", err)
	}

	return &DeepQ{
		online:       net,
		target:       target,
		opt:          opt,
		lossFn:       lossFn,
		replay:       replay,
		numActions:   numActions,
		gamma:        c.Gamma,
		epsilon:      c.Epsilon,
		tau:          c.Tau,
		syncKind:     c.SyncRule,
		lossTarget:   c.LossTarget,
		maskTerminal: c.MaskTerminal,
		rng:          rand.New(rand.NewSource(c.Seed)),
		logger:       zerolog.Nop(),
	}, nil
}

// NewFromEnv returns a new DeepQ agent for the environment e. The
// number of actions is taken from the environment's action Spec, and
// net is checked to produce one action value per action for the
// environment's observations.
func NewFromEnv(e environment.Environment, net Network, opt Optimizer,
	lossFn LossFunction, c Config) (*DeepQ, error) {
	numActions, err := e.ActionSpec().Actions()
	if err != nil {
		return nil, fmt.Errorf("newFromEnv: %w", err)
	}

	if net != nil {
		features := e.ObservationSpec().Features()
		pred, err := net.Predict(mat.NewDense(1, features, nil))
		if err != nil {
			return nil, fmt.Errorf("newFromEnv: %w", err)
		}
		if _, cols := pred.Dims(); cols != numActions {
			return nil, &network.DimensionMismatchError{
				Op:   "newFromEnv",
				Want: []int{1, numActions},
				Have: []int{1, cols},
			}
		}
	}
	return New(net, opt, lossFn, numActions, c)
}

// SetLogger sets the logger used by the agent
func (d *DeepQ) SetLogger(l zerolog.Logger) {
	d.logger = l
}

// Register adds a Sink which observes the history of episodic returns
// after each episode of Fit
func (d *DeepQ) Register(s monitor.Sink) {
	d.sinks = append(d.sinks, s)
}

// Close closes all registered Sinks
func (d *DeepQ) Close() error {
	return monitor.Multi(d.sinks).Close()
}

// SelectAction selects an action epsilon-greedily in state. With
// probability epsilon an action is selected uniformly at random,
// otherwise the action of highest value under the online network is
// selected.
func (d *DeepQ) SelectAction(state *mat.VecDense) (int, error) {
	r := d.rng.Float64()
	if d.epsilon > 0 && r <= d.epsilon {
		return d.rng.Intn(d.numActions), nil
	}
	return d.SelectGreedy(state)
}

// SelectGreedy returns the action of highest value under the online
// network in state. Ties are broken in favour of the lowest action.
func (d *DeepQ) SelectGreedy(state *mat.VecDense) (int, error) {
	batch := mat.NewDense(1, state.Len(), nil)
	batch.SetRow(0, mat.VecDenseCopyOf(state).RawVector().Data)

	values, err := d.online.Predict(batch)
	if err != nil {
		return 0, fmt.Errorf("selectGreedy: %w", err)
	}
	if _, cols := values.Dims(); cols != d.numActions {
		return 0, &network.DimensionMismatchError{
			Op:   "selectGreedy",
			Want: []int{1, d.numActions},
			Have: []int{1, cols},
		}
	}
	return floats.MaxIdx(values.RawRowView(0)), nil
}

// Train takes a single gradient step on the online network using
// batch. Only the online network's parameters are changed.
func (d *DeepQ) Train(batch []ts.Transition) error {
	if len(batch) == 0 {
		return fmt.Errorf("train: empty batch")
	}
	n := len(batch)
	features := batch[0].Features()

	states := mat.NewDense(n, features, nil)
	nextStates := mat.NewDense(n, features, nil)
	actions := make([]int, n)
	rewards := make([]float64, n)
	terminals := make([]bool, n)
	for i, t := range batch {
		if t.State.Len() != features || t.NextState.Len() != features {
			return &network.DimensionMismatchError{
				Op:   "train",
				Want: []int{features},
				Have: []int{t.State.Len(), t.NextState.Len()},
			}
		}
		if err := environment.ValidateAction(t.Action, d.numActions); err != nil {
			return fmt.Errorf("train: %w", err)
		}
		states.SetRow(i, mat.VecDenseCopyOf(t.State).RawVector().Data)
		nextStates.SetRow(i, mat.VecDenseCopyOf(t.NextState).RawVector().Data)
		actions[i] = t.Action
		rewards[i] = t.Reward
		terminals[i] = t.Terminal
	}

	// Target network predictions are never differentiated
	next, err := d.target.Predict(nextStates)
	if err != nil {
		return fmt.Errorf("train: target network: %w", err)
	}
	if r, c := next.Dims(); r != n || c != d.numActions {
		return &network.DimensionMismatchError{
			Op:   "train",
			Want: []int{n, d.numActions},
			Have: []int{r, c},
		}
	}
	maxNext := make([]float64, n)
	for i := range maxNext {
		maxNext[i] = floats.Max(next.RawRowView(i))
	}
	targets := mat.NewDense(n, 1, tdTargets(rewards, maxNext, terminals,
		d.gamma, d.maskTerminal))

	pred, err := d.online.Predict(states)
	if err != nil {
		return fmt.Errorf("train: online network: %w", err)
	}

	loss, outGrad, err := d.loss(targets, pred, actions)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	d.opt.ZeroGrad()
	if err := d.online.Backward(states, outGrad); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := d.opt.Step(); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	d.lastLoss = loss
	d.trainSteps++
	return nil
}

// loss computes the loss of pred with respect to the TD targets and
// the gradient of the loss with respect to pred
func (d *DeepQ) loss(targets, pred *mat.Dense, actions []int) (float64,
	*mat.Dense, error) {
	if d.lossTarget == AllActions {
		return d.lossFn.Loss(targets, pred)
	}

	n, cols := pred.Dims()
	taken := mat.NewDense(n, 1, nil)
	for i, a := range actions {
		taken.Set(i, 0, pred.At(i, a))
	}
	loss, grad, err := d.lossFn.Loss(targets, taken)
	if err != nil {
		return 0, nil, err
	}

	// Actions which were not taken receive no gradient
	outGrad := mat.NewDense(n, cols, nil)
	for i, a := range actions {
		outGrad.Set(i, a, grad.At(i, 0))
	}
	return loss, outGrad, nil
}

// tdTargets returns the TD targets r + γ * maxNext. If mask is true,
// transitions into terminal states do not bootstrap.
func tdTargets(rewards, maxNext []float64, terminals []bool, gamma float64,
	mask bool) []float64 {
	targets := make([]float64, len(rewards))
	for i := range targets {
		continuing := 1.0
		if mask && terminals[i] {
			continuing = 0.0
		}
		targets[i] = rewards[i] + gamma*continuing*maxNext[i]
	}
	return targets
}

// Sync moves the target network's parameters to the online network's
// parameters. With τ = 1 the online parameters are copied, otherwise
// the target parameters become τ * online + (1 - τ) * target. The
// target never shares storage with the online network.
func (d *DeepQ) Sync() error {
	params := d.online.Parameters()
	if d.tau != 1.0 {
		targetParams := d.target.Parameters()
		if len(targetParams) != len(params) {
			return fmt.Errorf("sync: %w", &network.DimensionMismatchError{
				Op:   "sync",
				Want: []int{len(targetParams)},
				Have: []int{len(params)},
			})
		}
		for i := range params {
			params[i].Scale(d.tau, params[i])
			targetParams[i].Scale(1-d.tau, targetParams[i])
			params[i].Add(params[i], targetParams[i])
		}
	}

	if err := d.target.SetParameters(params); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Fit trains the agent on env for fc.Episodes episodes and returns the
// return of each episode. After each episode:
//
//  1. If the replay buffer holds more than fc.BatchSize transitions,
//     fc.BatchCount gradient steps are taken, each on a freshly sampled
//     batch of fc.BatchSize transitions. Otherwise a single gradient
//     step is taken on the entire buffer.
//  2. Each registered Sink observes the returns so far. Sink errors are
//     logged and do not stop training.
//  3. The target network is synced if the sync rule fires for the
//     episode index, with period fc.TrainEvery.
//
// Any error from the environment or the networks stops training and is
// returned along with the returns of all completed episodes.
func (d *DeepQ) Fit(env environment.Environment, fc FitConfig) ([]float64,
	error) {
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	syncRule, err := cadence.Rule{Kind: d.syncKind}.WithPeriod(fc.TrainEvery)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	returns := make([]float64, 0, fc.Episodes)
	for e := 0; e < fc.Episodes; e++ {
		ret, steps, err := d.runEpisode(env)
		if err != nil {
			return returns, fmt.Errorf("fit: episode %d: %w", e, err)
		}
		returns = append(returns, ret)

		if err := d.trainEpisode(fc); err != nil {
			return returns, fmt.Errorf("fit: episode %d: %w", e, err)
		}

		for _, sink := range d.sinks {
			if err := sink.Observe(returns); err != nil {
				d.logger.Warn().Err(err).Int("episode", e).
					Msg("monitor sink failed")
			}
		}

		synced := syncRule.Fires(e)
		if synced {
			if err := d.Sync(); err != nil {
				return returns, fmt.Errorf("fit: episode %d: %w", e, err)
			}
		}

		d.logger.Debug().
			Int("episode", e).
			Int("steps", steps).
			Float64("return", ret).
			Float64("loss", d.lastLoss).
			Bool("synced", synced).
			Msg("episode complete")
	}
	return returns, nil
}

// runEpisode runs a single episode on env, storing each transition in
// the replay buffer. The return and number of steps of the episode are
// returned.
func (d *DeepQ) runEpisode(env environment.Environment) (float64, int,
	error) {
	step, err := env.Reset()
	if err != nil {
		return 0, 0, fmt.Errorf("reset: %w", err)
	}
	state := step.Observation

	var ret float64
	var steps int
	for done := false; !done; steps++ {
		action, err := d.SelectAction(state)
		if err != nil {
			return ret, steps, err
		}

		step, done, err = env.Step(action)
		if err != nil {
			return ret, steps, fmt.Errorf("step: %w", err)
		}

		ret += step.Reward
		d.replay.Add(ts.NewTransition(state, action, step.Reward,
			step.Observation, done))
		state = step.Observation
	}
	return ret, steps, nil
}

// trainEpisode takes the gradient steps following an episode
func (d *DeepQ) trainEpisode(fc FitConfig) error {
	if d.replay.Len() <= fc.BatchSize {
		return d.Train(d.replay.All())
	}

	for i := 0; i < fc.BatchCount; i++ {
		batch, err := d.replay.Sample(fc.BatchSize)
		if err != nil {
			return err
		}
		if err := d.Train(batch); err != nil {
			return err
		}
	}
	return nil
}

// LastLoss returns the loss of the most recent gradient step
func (d *DeepQ) LastLoss() float64 {
	return d.lastLoss
}

// TrainSteps returns the number of gradient steps taken
func (d *DeepQ) TrainSteps() int {
	return d.trainSteps
}

// Online returns the online network
func (d *DeepQ) Online() Network {
	return d.online
}

// Target returns the target network
func (d *DeepQ) Target() network.Estimator {
	return d.target
}

// Replay returns the agent's experience replay buffer
func (d *DeepQ) Replay() *expreplay.Buffer {
	return d.replay
}

// Epsilon returns the behaviour policy's epsilon
func (d *DeepQ) Epsilon() float64 {
	return d.epsilon
}

// NumActions returns the number of actions the agent selects between
func (d *DeepQ) NumActions() int {
	return d.numActions
}
