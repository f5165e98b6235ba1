package deepq

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/godqn/cadence"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/chain"
	"github.com/samuelfneumann/godqn/initwfn"
	"github.com/samuelfneumann/godqn/loss"
	"github.com/samuelfneumann/godqn/monitor"
	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// linear is a linear action value estimator, Q(s, ·) = sᵀW
type linear struct {
	w           *mat.Dense
	grad        *mat.Dense
	lastOutGrad *mat.Dense
	sets        int
}

func newLinear(features, actions int, w []float64) *linear {
	return &linear{
		w:    mat.NewDense(features, actions, w),
		grad: mat.NewDense(features, actions, nil),
	}
}

func (l *linear) Predict(states *mat.Dense) (*mat.Dense, error) {
	_, f := states.Dims()
	if rows, _ := l.w.Dims(); f != rows {
		return nil, &network.DimensionMismatchError{
			Op: "predict", Want: []int{rows}, Have: []int{f},
		}
	}
	var out mat.Dense
	out.Mul(states, l.w)
	return &out, nil
}

func (l *linear) Backward(states, outGrad *mat.Dense) error {
	var g mat.Dense
	g.Mul(states.T(), outGrad)
	l.grad.Add(l.grad, &g)
	l.lastOutGrad = mat.DenseCopyOf(outGrad)
	return nil
}

func (l *linear) Parameters() []*mat.Dense {
	return []*mat.Dense{mat.DenseCopyOf(l.w)}
}

func (l *linear) SetParameters(p []*mat.Dense) error {
	l.w.Copy(p[0])
	l.sets++
	return nil
}

func (l *linear) Clone() (network.Estimator, error) {
	r, c := l.w.Dims()
	return &linear{w: mat.DenseCopyOf(l.w), grad: mat.NewDense(r, c, nil)}, nil
}

// sgd takes plain gradient descent steps on a linear estimator
type sgd struct {
	net    *linear
	lr     float64
	steps  int
	zeroes int
}

func (s *sgd) ZeroGrad() {
	s.zeroes++
	s.net.grad.Zero()
}

func (s *sgd) Step() error {
	s.steps++
	var delta mat.Dense
	delta.Scale(s.lr, s.net.grad)
	s.net.w.Sub(s.net.w, &delta)
	return nil
}

// recordingLoss records the targets passed to an MSE loss
type recordingLoss struct {
	mse     *loss.Loss
	targets []*mat.Dense
}

func (r *recordingLoss) Loss(target, prediction *mat.Dense) (float64,
	*mat.Dense, error) {
	r.targets = append(r.targets, mat.DenseCopyOf(target))
	return r.mse.Loss(target, prediction)
}

type countingSink struct {
	observed []int
	err      error
	closed   bool
}

func (c *countingSink) Observe(returns []float64) error {
	c.observed = append(c.observed, len(returns))
	return c.err
}

func (c *countingSink) Close() error {
	c.closed = true
	return nil
}

func testConfig() Config {
	c := DefaultConfig()
	c.Capacity = 1000
	c.Seed = 1
	return c
}

func newTestAgent(t *testing.T, net *linear, actions int, c Config) (*DeepQ,
	*sgd) {
	opt := &sgd{net: net, lr: 0.1}
	d, err := New(net, opt, loss.NewMSE(), actions, c)
	require.NoError(t, err)
	return d, opt
}

func TestSelectActionGreedy(t *testing.T) {
	c := testConfig()
	c.Epsilon = 0

	d, _ := newTestAgent(t, newLinear(1, 3, []float64{0.1, 0.9, 0.2}), 3, c)
	state := mat.NewVecDense(1, []float64{1})
	for i := 0; i < 100; i++ {
		a, err := d.SelectAction(state)
		require.NoError(t, err)
		require.Equal(t, 1, a)
	}

	// Ties go to the lowest action
	d, _ = newTestAgent(t, newLinear(1, 3, []float64{0.5, 0.1, 0.5}), 3, c)
	a, err := d.SelectGreedy(state)
	require.NoError(t, err)
	require.Equal(t, 0, a)
}

func TestSelectActionUniform(t *testing.T) {
	c := testConfig()
	c.Epsilon = 1

	const actions = 4
	const draws = 8000
	d, _ := newTestAgent(t, newLinear(1, actions, []float64{0, 10, 0, 0}),
		actions, c)

	counts := make([]int, actions)
	state := mat.NewVecDense(1, []float64{1})
	for i := 0; i < draws; i++ {
		a, err := d.SelectAction(state)
		require.NoError(t, err)
		counts[a]++
	}
	for a, count := range counts {
		require.InDelta(t, draws/actions, count, 200, "action %d", a)
	}
}

func TestSelectActionDimensionMismatch(t *testing.T) {
	c := testConfig()
	c.Epsilon = 0
	d, _ := newTestAgent(t, newLinear(2, 2, nil), 2, c)

	_, err := d.SelectAction(mat.NewVecDense(3, nil))
	require.True(t, network.IsDimensionMismatch(err))
}

func TestTDTargets(t *testing.T) {
	got := tdTargets([]float64{1}, []float64{3}, []bool{false}, 0.99, false)
	require.InDelta(t, 3.97, got[0], 1e-12)

	// Without a mask, terminal transitions still bootstrap
	got = tdTargets([]float64{1, 2}, []float64{3, 4}, []bool{true, false},
		0.5, false)
	require.InDeltaSlice(t, []float64{2.5, 4}, got, 1e-12)

	got = tdTargets([]float64{1, 2}, []float64{3, 4}, []bool{true, false},
		0.5, true)
	require.InDeltaSlice(t, []float64{1, 4}, got, 1e-12)
}

func transition(state []float64, action int, reward float64,
	next []float64, terminal bool) ts.Transition {
	return ts.NewTransition(mat.NewVecDense(len(state), state), action,
		reward, mat.NewVecDense(len(next), next), terminal)
}

func TestTrainTarget(t *testing.T) {
	tests := []struct {
		name       string
		lossTarget LossTarget
		wantGrad   []float64
	}{
		// Q(s, ·) = [0, 0], so the error on each output is -3.97
		{"AllActions", AllActions, []float64{-3.97, -3.97}},
		{"TakenAction", TakenAction, []float64{-2 * 3.97, 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testConfig()
			c.LossTarget = test.lossTarget

			// max_a Q(s', a) = 3 for s' = [0, 1]
			net := newLinear(2, 2, []float64{0, 0, 3, 1})
			lossFn := &recordingLoss{mse: loss.NewMSE()}
			opt := &sgd{net: net, lr: 0.1}
			d, err := New(net, opt, lossFn, 2, c)
			require.NoError(t, err)

			batch := []ts.Transition{
				transition([]float64{1, 0}, 0, 1, []float64{0, 1}, false),
			}
			require.NoError(t, d.Train(batch))

			require.Len(t, lossFn.targets, 1)
			require.InDelta(t, 3.97, lossFn.targets[0].At(0, 0), 1e-12)
			require.InDeltaSlice(t, test.wantGrad,
				net.lastOutGrad.RawRowView(0), 1e-9)
			require.Equal(t, 1, opt.zeroes)
			require.Equal(t, 1, opt.steps)
			require.Equal(t, 1, d.TrainSteps())
			require.Greater(t, d.LastLoss(), 0.0)
		})
	}
}

func TestTrainChangesOnlyOnline(t *testing.T) {
	net := newLinear(2, 2, []float64{0, 0, 1, 1})
	d, _ := newTestAgent(t, net, 2, testConfig())
	before := d.Target().Parameters()[0]

	batch := []ts.Transition{
		transition([]float64{1, 0}, 1, 1, []float64{0, 1}, false),
		transition([]float64{0, 1}, 0, 0, []float64{1, 0}, true),
	}
	require.NoError(t, d.Train(batch))

	require.True(t, mat.Equal(before, d.Target().Parameters()[0]))
	require.False(t, mat.Equal(before, d.Online().Parameters()[0]))
}

func TestTrainErrors(t *testing.T) {
	d, _ := newTestAgent(t, newLinear(2, 2, nil), 2, testConfig())

	require.Error(t, d.Train(nil))

	err := d.Train([]ts.Transition{
		transition([]float64{1, 0}, 5, 1, []float64{0, 1}, false),
	})
	require.True(t, environment.IsInvalidAction(err))

	err = d.Train([]ts.Transition{
		transition([]float64{1, 0, 0}, 0, 1, []float64{0, 1, 0}, false),
	})
	require.True(t, network.IsDimensionMismatch(err))
}

func TestSyncIndependence(t *testing.T) {
	net := newLinear(2, 2, []float64{1, 2, 3, 4})
	d, _ := newTestAgent(t, net, 2, testConfig())

	target := d.Target()
	require.NotSame(t, net, target)

	net.w.Set(0, 0, 10)
	require.NoError(t, d.Sync())
	require.True(t, mat.Equal(net.w, target.Parameters()[0]))

	// Later changes to the online network never reach the target
	net.w.Set(1, 1, -7)
	require.Equal(t, 4.0, target.Parameters()[0].At(1, 1))

	// Nor do changes to the parameters returned by the target
	params := target.Parameters()
	params[0].Set(0, 1, 100)
	require.Equal(t, 2.0, target.Parameters()[0].At(0, 1))
}

func TestSyncPolyak(t *testing.T) {
	c := testConfig()
	c.Tau = 0.25

	net := newLinear(1, 2, []float64{0, 0})
	d, _ := newTestAgent(t, net, 2, c)

	net.w.SetRow(0, []float64{4, 8})
	require.NoError(t, d.Sync())
	require.InDeltaSlice(t, []float64{1, 2},
		d.Target().Parameters()[0].RawRowView(0), 1e-12)
}

// newStuckChain returns a chain on which a greedy agent with zero
// weights always moves left, so every episode lasts exactly steps steps
func newStuckChain(t *testing.T, steps int) *chain.Chain {
	c, err := chain.New(3, steps)
	require.NoError(t, err)
	return c
}

func TestFitTraining(t *testing.T) {
	tests := []struct {
		name       string
		batchSize  int
		batchCount int
		episodes   int
		wantSteps  int
	}{
		// The buffer never holds more than batchSize transitions, so the
		// whole buffer is trained on exactly once per episode
		{"FullBuffer", 100, 5, 4, 4},
		{"Sampled", 3, 2, 4, 8},
		{"FullThenSampled", 7, 3, 3, 1 + 3 + 3},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testConfig()
			c.Epsilon = 0
			net := newLinear(3, chain.NumActions, nil)
			opt := &sgd{net: net, lr: 0}
			d, err := New(net, opt, loss.NewMSE(), chain.NumActions, c)
			require.NoError(t, err)

			returns, err := d.Fit(newStuckChain(t, 5), FitConfig{
				Episodes:   test.episodes,
				BatchSize:  test.batchSize,
				TrainEvery: 10,
				BatchCount: test.batchCount,
			})
			require.NoError(t, err)
			require.Len(t, returns, test.episodes)
			require.Equal(t, test.wantSteps, opt.steps)
			require.Equal(t, test.wantSteps, d.TrainSteps())
			require.Equal(t, 5*test.episodes, d.Replay().Len())
		})
	}
}

func TestFitSyncCadence(t *testing.T) {
	tests := []struct {
		kind cadence.Kind
		want int
	}{
		{cadence.Always, 5},
		{cadence.OnMultipleOf, 3},     // Episodes 0, 2, 4
		{cadence.ExceptMultipleOf, 2}, // Episodes 1, 3
	}

	for _, test := range tests {
		t.Run(string(test.kind), func(t *testing.T) {
			c := testConfig()
			c.Epsilon = 0
			c.SyncRule = test.kind
			d, _ := newTestAgent(t, newLinear(3, chain.NumActions, nil),
				chain.NumActions, c)

			_, err := d.Fit(newStuckChain(t, 2), FitConfig{
				Episodes:   5,
				BatchSize:  10,
				TrainEvery: 2,
				BatchCount: 1,
			})
			require.NoError(t, err)
			require.Equal(t, test.want, d.Target().(*linear).sets)
		})
	}
}

func TestFitSinks(t *testing.T) {
	c := testConfig()
	c.Epsilon = 0
	d, _ := newTestAgent(t, newLinear(3, chain.NumActions, nil),
		chain.NumActions, c)

	ok := &countingSink{}
	failing := &countingSink{err: errors.New("disk full")}
	d.Register(ok)
	d.Register(failing)

	returns, err := d.Fit(newStuckChain(t, 2), DefaultFitConfig(3))
	require.NoError(t, err)
	require.Len(t, returns, 3)
	require.Equal(t, []int{1, 2, 3}, ok.observed)
	require.Equal(t, []int{1, 2, 3}, failing.observed)

	require.NoError(t, d.Close())
	require.True(t, ok.closed)
	require.True(t, failing.closed)
}

func TestFitConfigValidate(t *testing.T) {
	require.NoError(t, DefaultFitConfig(10).Validate())
	require.NoError(t, DefaultFitConfig(0).Validate())

	bad := []FitConfig{
		{Episodes: -1, BatchSize: 1, TrainEvery: 1, BatchCount: 1},
		{Episodes: 1, BatchSize: 0, TrainEvery: 1, BatchCount: 1},
		{Episodes: 1, BatchSize: 1, TrainEvery: 0, BatchCount: 1},
		{Episodes: 1, BatchSize: 1, TrainEvery: 1, BatchCount: 0},
	}
	for _, fc := range bad {
		require.Error(t, fc.Validate(), "%+v", fc)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := map[string]func(*Config){
		"gamma zero":      func(c *Config) { c.Gamma = 0 },
		"gamma too large": func(c *Config) { c.Gamma = 1.1 },
		"epsilon":         func(c *Config) { c.Epsilon = -0.1 },
		"capacity":        func(c *Config) { c.Capacity = 0 },
		"tau":             func(c *Config) { c.Tau = 0 },
		"sync rule":       func(c *Config) { c.SyncRule = "Sometimes" },
		"loss target":     func(c *Config) { c.LossTarget = "Some" },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			modify(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	env, err := chain.New(4, 10)
	require.NoError(t, err)

	net := newLinear(4, chain.NumActions, nil)
	d, err := NewFromEnv(env, net, &sgd{net: net}, loss.NewMSE(),
		testConfig())
	require.NoError(t, err)
	require.Equal(t, chain.NumActions, d.NumActions())

	net = newLinear(4, 3, nil)
	_, err = NewFromEnv(env, net, &sgd{net: net}, loss.NewMSE(),
		testConfig())
	require.True(t, network.IsDimensionMismatch(err))
}

func TestFitEndToEnd(t *testing.T) {
	tests := []struct {
		name         string
		epsilon      float64
		lossTarget   LossTarget
		maskTerminal bool

		// learnsGreedy is set when the greedy action should become Right.
		// Regressing every action value toward the same target keeps
		// the values of both actions equal.
		learnsGreedy bool
	}{
		{"TakenActionMasked", 0.1, TakenAction, true, true},
		{"Defaults", 0.5, AllActions, false, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Two states: moving right from the start reaches the goal
			env, err := chain.New(2, 20)
			require.NoError(t, err)

			zeroes, err := initwfn.NewZeroes()
			require.NoError(t, err)
			net, err := network.NewMLP(2, chain.NumActions, nil, nil, nil,
				zeroes.InitWFn(1))
			require.NoError(t, err)

			adam, err := solver.NewDefaultAdam(0.05, 1)
			require.NoError(t, err)
			opt, err := solver.NewOptimizer(adam, net)
			require.NoError(t, err)

			c := Config{
				Gamma:        0.5,
				Epsilon:      test.epsilon,
				Capacity:     1000,
				Seed:         42,
				SyncRule:     cadence.OnMultipleOf,
				Tau:          1,
				LossTarget:   test.lossTarget,
				MaskTerminal: test.maskTerminal,
			}
			d, err := NewFromEnv(env, net, opt, loss.NewMSE(), c)
			require.NoError(t, err)

			returns, err := d.Fit(env, FitConfig{
				Episodes:   50,
				BatchSize:  32,
				TrainEvery: 5,
				BatchCount: 10,
			})
			require.NoError(t, err)
			require.Len(t, returns, 50)
			require.False(t, math.IsNaN(d.LastLoss()))
			require.False(t, math.IsInf(d.LastLoss(), 0))

			// A single failed episode near the end moves the trend by
			// less than the tolerance
			trend := monitor.EWMA(returns, 10, 10)
			first, last := trend[9], trend[len(trend)-1]
			require.False(t, math.IsNaN(first))
			require.GreaterOrEqual(t, last, first-0.25)
			require.GreaterOrEqual(t, floats.Sum(returns[40:])/10, 0.8)

			a, err := d.SelectGreedy(mat.NewVecDense(2, []float64{1, 0}))
			require.NoError(t, err)
			if test.learnsGreedy {
				require.Equal(t, chain.Right, a)
			} else {
				values, err := d.Online().Predict(mat.NewDense(1, 2,
					[]float64{1, 0}))
				require.NoError(t, err)
				require.InDelta(t, values.At(0, 0), values.At(0, 1), 1e-9)
			}
		})
	}
}

func BenchmarkTrain(b *testing.B) {
	net := newLinear(8, 4, nil)
	d, err := New(net, &sgd{net: net, lr: 0.01}, loss.NewMSE(), 4,
		testConfig())
	if err != nil {
		b.Fatal(err)
	}

	batch := make([]ts.Transition, 64)
	for i := range batch {
		s := make([]float64, 8)
		s[i%8] = 1
		batch[i] = transition(s, i%4, 1, s, false)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Train(batch); err != nil {
			b.Fatal(err)
		}
	}
}
