// Package network implements neural network action-value estimators
// built on Gorgonia computational graphs.
package network

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Estimator maps a batch of states, one state per row, to a batch of
// predictions, one row of per-action values per state.
type Estimator interface {
	Predict(states *mat.Dense) (*mat.Dense, error)

	// Parameters returns deep copies of the learnable parameters
	Parameters() []*mat.Dense

	// SetParameters copies params into the Estimator's own storage
	SetParameters(params []*mat.Dense) error

	// Clone returns a structurally identical Estimator with copied
	// parameters and no shared storage
	Clone() (Estimator, error)
}

// param stores a learnable tensor and its accumulated gradient. A
// param satisfies G.ValueGrad so that Gorgonia Solvers update its value
// in place.
type param struct {
	name  string
	value *tensor.Dense
	grad  *tensor.Dense
}

func newParam(name string, rows, cols int, backing []float64) *param {
	return &param{
		name: name,
		value: tensor.New(tensor.WithShape(rows, cols),
			tensor.WithBacking(backing)),
		grad: tensor.New(tensor.WithShape(rows, cols),
			tensor.WithBacking(make([]float64, rows*cols))),
	}
}

// Value returns the parameter tensor
func (p *param) Value() G.Value { return p.value }

// Grad returns the accumulated gradient of the parameter
func (p *param) Grad() (G.Value, error) { return p.grad, nil }

// Name returns the name of the parameter
func (p *param) Name() string { return p.name }

func (p *param) dims() (int, int) {
	shape := p.value.Shape()
	return shape[0], shape[1]
}

func (p *param) data() []float64 {
	return p.value.Data().([]float64)
}

func (p *param) clone() *param {
	r, c := p.dims()
	backing := make([]float64, r*c)
	copy(backing, p.data())
	return newParam(p.name, r, c, backing)
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *param
	bias    *param // nil if the layer has no bias unit
	act     *Activation
}

// fwd adds the forward pass of the fcLayer to the computational graph,
// returning the output node and the learnable nodes of the layer
func (f *fcLayer) fwd(g *G.ExprGraph, x *G.Node) (*G.Node, G.Nodes, error) {
	weights := paramNode(g, f.weights)
	learnables := G.Nodes{weights}

	out, err := G.Mul(x, weights)
	if err != nil {
		return nil, nil, err
	}

	if f.bias != nil {
		bias := paramNode(g, f.bias)
		learnables = append(learnables, bias)

		// Broadcast the bias weights to all samples along the batch
		// dimension
		out, err = G.BroadcastAdd(out, bias, nil, []byte{0})
		if err != nil {
			return nil, nil, err
		}
	}

	out, err = f.act.fwd(out)
	return out, learnables, err
}

func paramNode(g *G.ExprGraph, p *param) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(p.value.Shape()...),
		G.WithName(p.name), G.WithValue(p.value))
}

// MLP implements a multi-layered perceptron with one output node per
// predicted value. The MLP holds its parameters outside of any
// computational graph; each Predict or Backward call compiles a graph
// for the batch size at hand which reads the parameters in place.
//
// An MLP is not safe for concurrent use.
type MLP struct {
	features, outputs int
	layers            []*fcLayer
	model             []G.ValueGrad
}

// NewMLP creates and returns a new multi-layered perceptron taking
// feature vectors of size features and producing outputs predictions.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. For
// index i, hiddenSizes[i] is the number of nodes in hidden layer i;
// biases[i] is true if the hidden layer will contain a bias unit; and
// activations[i] is the activation function for hidden layer i. A final
// linear layer with a bias unit is always added so that the network
// produces outputs predictions. Weights are initialized with init and
// biases are initialized to zero.
func NewMLP(features, outputs int, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (*MLP, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newMLP: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newMLP: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if features < 1 || outputs < 1 {
		msg := "newMLP: features and outputs must be positive\n\twant(>0, >0)" +
			"\n\thave(%d, %d)"
		return nil, fmt.Errorf(msg, features, outputs)
	}

	sizes := append(append([]int{}, hiddenSizes...), outputs)
	hasBias := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), Identity())

	layers := make([]*fcLayer, len(sizes))
	in := features
	for i, out := range sizes {
		if out < 1 {
			return nil, fmt.Errorf("newMLP: layer %d must have a positive "+
				"size \n\twant(>0) \n\thave(%d)", i, out)
		}
		if acts[i] == nil {
			return nil, fmt.Errorf("newMLP: layer %d has nil activation", i)
		}

		backing, ok := init(tensor.Float64, in, out).([]float64)
		if !ok || len(backing) != in*out {
			return nil, fmt.Errorf("newMLP: weight initializer returned " +
				"invalid weights")
		}
		layer := &fcLayer{
			weights: newParam(fmt.Sprintf("L%dW", i), in, out, backing),
			act:     acts[i],
		}
		if hasBias[i] {
			layer.bias = newParam(fmt.Sprintf("L%dB", i), 1, out,
				make([]float64, out))
		}
		layers[i] = layer
		in = out
	}

	return &MLP{features: features, outputs: outputs, layers: layers}, nil
}

// Features returns the number of features in a single state vector
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs from the network
func (m *MLP) Outputs() int {
	return m.outputs
}

// params returns the learnable parameters in order, layer by layer with
// the weights of a layer preceding its bias
func (m *MLP) params() []*param {
	params := make([]*param, 0, 2*len(m.layers))
	for _, l := range m.layers {
		params = append(params, l.weights)
		if l.bias != nil {
			params = append(params, l.bias)
		}
	}
	return params
}

// fwd adds the forward pass of the MLP to g, returning the prediction
// node and the learnable nodes
func (m *MLP) fwd(g *G.ExprGraph, states *mat.Dense) (*G.Node, G.Nodes,
	error) {
	rows, _ := states.Dims()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, m.features),
		G.WithName("input"), G.WithValue(denseToTensor(states)))

	pred := input
	var learnables G.Nodes
	for i, l := range m.layers {
		var nodes G.Nodes
		var err error
		pred, nodes, err = l.fwd(g, pred)
		if err != nil {
			return nil, nil, fmt.Errorf("fwd: could not compute forward "+
				"pass of layer %d: %v", i, err)
		}
		learnables = append(learnables, nodes...)
	}
	return pred, learnables, nil
}

func (m *MLP) checkStates(op string, states *mat.Dense) error {
	rows, cols := states.Dims()
	if rows == 0 || cols != m.features {
		return &DimensionMismatchError{
			Op:   op,
			Want: []int{rows, m.features},
			Have: []int{rows, cols},
		}
	}
	return nil
}

// Predict returns the predictions of the MLP for each state in
// states. No gradients are computed.
func (m *MLP) Predict(states *mat.Dense) (*mat.Dense, error) {
	if err := m.checkStates("predict", states); err != nil {
		return nil, err
	}

	g := G.NewGraph()
	pred, _, err := m.fwd(g, states)
	if err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: could not run forward pass: %v", err)
	}

	rows, _ := states.Dims()
	return tensorToDense(pred.Value(), rows, m.outputs)
}

// Backward computes the gradient of the MLP's parameters given the
// gradient of some scalar loss with respect to the MLP's predictions on
// states, outGrad. The parameter gradients are accumulated into the
// gradients returned by Model until ZeroGrad is called.
func (m *MLP) Backward(states, outGrad *mat.Dense) error {
	if err := m.checkStates("backward", states); err != nil {
		return err
	}
	rows, _ := states.Dims()
	if r, c := outGrad.Dims(); r != rows || c != m.outputs {
		return &DimensionMismatchError{
			Op:   "backward",
			Want: []int{rows, m.outputs},
			Have: []int{r, c},
		}
	}

	g := G.NewGraph()
	pred, learnables, err := m.fwd(g, states)
	if err != nil {
		return fmt.Errorf("backward: %v", err)
	}

	// The gradient of sum(pred ⊙ outGrad) with respect to the
	// parameters is the chain rule applied to outGrad
	upstream := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, m.outputs),
		G.WithName("upstream"), G.WithValue(denseToTensor(outGrad)))
	cost := G.Must(G.Sum(G.Must(G.HadamardProd(pred, upstream))))
	if _, err := G.Grad(cost, learnables...); err != nil {
		return fmt.Errorf("backward: could not compute gradient: %v", err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(learnables...))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return fmt.Errorf("backward: could not run backward pass: %v", err)
	}

	params := m.params()
	for i, node := range learnables {
		grad, err := node.Grad()
		if err != nil {
			return fmt.Errorf("backward: could not get gradient of %v: %v",
				node.Name(), err)
		}
		floats.Add(params[i].grad.Data().([]float64),
			grad.Data().([]float64))
	}
	return nil
}

// ZeroGrad zeroes all accumulated gradients
func (m *MLP) ZeroGrad() {
	for _, p := range m.params() {
		p.grad.Zero()
	}
}

// Model returns the learnable parameters with their accumulated
// gradients, to be stepped by a Gorgonia Solver
func (m *MLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		params := m.params()
		m.model = make([]G.ValueGrad, len(params))
		for i := range params {
			m.model[i] = params[i]
		}
	}
	return m.model
}

// Parameters returns copies of the learnable parameters of the MLP
func (m *MLP) Parameters() []*mat.Dense {
	params := m.params()
	out := make([]*mat.Dense, len(params))
	for i, p := range params {
		r, c := p.dims()
		backing := make([]float64, r*c)
		copy(backing, p.data())
		out[i] = mat.NewDense(r, c, backing)
	}
	return out
}

// SetParameters copies the values of params into the learnable
// parameters of the MLP. The MLP does not retain params.
func (m *MLP) SetParameters(params []*mat.Dense) error {
	dest := m.params()
	if len(params) != len(dest) {
		return &DimensionMismatchError{
			Op:   "setParameters",
			Want: []int{len(dest)},
			Have: []int{len(params)},
		}
	}
	for i, p := range dest {
		r, c := p.dims()
		if pr, pc := params[i].Dims(); pr != r || pc != c {
			return &DimensionMismatchError{
				Op:   "setParameters",
				Want: []int{r, c},
				Have: []int{pr, pc},
			}
		}
	}

	for i, p := range dest {
		r, c := p.dims()
		view := mat.NewDense(r, c, p.data())
		view.Copy(params[i])
	}
	return nil
}

// Clone returns a copy of the MLP with its own parameters and zeroed
// gradients
func (m *MLP) Clone() (Estimator, error) {
	layers := make([]*fcLayer, len(m.layers))
	for i, l := range m.layers {
		layers[i] = &fcLayer{weights: l.weights.clone(), act: l.act}
		if l.bias != nil {
			layers[i].bias = l.bias.clone()
		}
	}
	return &MLP{features: m.features, outputs: m.outputs, layers: layers}, nil
}

// String implements the fmt.Stringer interface
func (m *MLP) String() string {
	sizes := make([]int, len(m.layers))
	for i, l := range m.layers {
		_, sizes[i] = l.weights.dims()
	}
	return fmt.Sprintf("MLP | Features: %v  |  Layers: %v", m.features, sizes)
}

// denseToTensor copies a matrix into a new row-major tensor
func denseToTensor(d *mat.Dense) *tensor.Dense {
	r, c := d.Dims()
	backing := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		backing = append(backing, d.RawRowView(i)...)
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(backing))
}

// tensorToDense copies a Gorgonia Value holding rows x cols float64
// values into a new matrix
func tensorToDense(v G.Value, rows, cols int) (*mat.Dense, error) {
	data, ok := v.Data().([]float64)
	if !ok || len(data) != rows*cols {
		return nil, &DimensionMismatchError{
			Op:   "predict",
			Want: []int{rows, cols},
			Have: v.Shape(),
		}
	}
	backing := make([]float64, len(data))
	copy(backing, data)
	return mat.NewDense(rows, cols, backing), nil
}
