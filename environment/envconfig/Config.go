// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/box2d/lunarlander"
	"github.com/samuelfneumann/godqn/environment/chain"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/godqn/environment/gridworld"
	"github.com/samuelfneumann/godqn/environment/maze"
	"github.com/samuelfneumann/godqn/environment/wrappers"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Chain       EnvName = "Chain"
	GridWorld   EnvName = "GridWorld"
	Cartpole    EnvName = "Cartpole"
	LunarLander EnvName = "LunarLander"
	Maze        EnvName = "Maze"
	Gym         EnvName = "Gym"
)

// gymFactory creates Gym environments. It is only set when built with
// the gogym build tag.
var gymFactory func(name string, seed uint64) (env.Environment, error)

// Config implements a specific configuration of a specific environment.
// Fields which do not apply to the configured environment are ignored.
// EpisodeCutoff is ignored for Gym environments.
type Config struct {
	Environment   EnvName
	EpisodeCutoff int

	// Chain
	Length int `json:",omitempty"`

	// GridWorld and Maze
	Rows        int   `json:",omitempty"`
	Cols        int   `json:",omitempty"`
	GoalX       []int `json:",omitempty"`
	GoalY       []int `json:",omitempty"`
	RandomStart bool  `json:",omitempty"`
	XY          bool  `json:",omitempty"`

	// Maze, generated with Backtracking if no algorithm is given
	MazeAlgorithm maze.Algorithm `json:",omitempty"`
	OneHot        bool           `json:",omitempty"`

	// Gym
	GymName string `json:",omitempty"`

	// TileCoding, if set, tile codes the environment's observations
	TileCoding *TileCodingConfig `json:",omitempty"`
}

// TileCodingConfig configures a wrappers.TileCoding wrapper. Each
// element of Bins describes one tiling. If Min and Max are both empty,
// the bounds of the environment's observation Spec are used.
type TileCodingConfig struct {
	Bins [][]int
	Min  []float64 `json:",omitempty"`
	Max  []float64 `json:",omitempty"`
}

// DefaultConfig returns the configuration of a 10 state Chain
func DefaultConfig() Config {
	return Config{Environment: Chain, EpisodeCutoff: 100, Length: 10}
}

// Validate checks that the Config describes a valid environment
func (c Config) Validate() error {
	// Gym environments have their own episode cutoffs
	if c.Environment != Gym && c.EpisodeCutoff < 1 {
		return fmt.Errorf("validate: episode cutoff must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.EpisodeCutoff)
	}

	switch c.Environment {
	case Chain:
		if c.Length < 2 {
			return fmt.Errorf("validate: chain must have at least 2 states "+
				"\n\twant(>=2) \n\thave(%v)", c.Length)
		}
	case GridWorld:
		if c.Rows < 1 || c.Cols < 1 {
			return fmt.Errorf("validate: gridworld must have positive "+
				"dimensions \n\twant(>0, >0) \n\thave(%v, %v)", c.Rows, c.Cols)
		}
	case Maze:
		if c.Rows < 1 || c.Cols < 1 || c.Rows*c.Cols < 2 {
			return fmt.Errorf("validate: maze must have at least 2 cells "+
				"\n\twant(>=2) \n\thave(%v ⨉ %v)", c.Rows, c.Cols)
		}
	case Cartpole, LunarLander:
	case Gym:
		if c.GymName == "" {
			return fmt.Errorf("validate: no gym environment name given")
		}
	default:
		return fmt.Errorf("validate: no such environment %q", c.Environment)
	}

	oneHotGrid := c.Environment == GridWorld ||
		(c.Environment == Maze && c.OneHot)
	if c.XY && !oneHotGrid {
		return fmt.Errorf("validate: XY observations are only available "+
			"for %v and one-hot %v", GridWorld, Maze)
	}
	if c.TileCoding != nil {
		if len(c.TileCoding.Bins) == 0 {
			return fmt.Errorf("validate: tile coding requires at least " +
				"one tiling")
		}
		if len(c.TileCoding.Min) != len(c.TileCoding.Max) {
			return fmt.Errorf("validate: tile coding bounds must have "+
				"equal length \n\twant(%v) \n\thave(%v)",
				len(c.TileCoding.Min), len(c.TileCoding.Max))
		}
	}
	return nil
}

// Create returns the environment described by the Config
func (c Config) Create(seed uint64) (env.Environment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	e, err := c.create(seed)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	if c.XY {
		g, ok := e.(wrappers.RowColer)
		if !ok {
			return nil, fmt.Errorf("create: %v does not have a grid layout", e)
		}
		e = wrappers.NewXY(g)
	}

	if c.TileCoding != nil {
		var minDims, maxDims []float64
		if len(c.TileCoding.Min) > 0 {
			minDims, maxDims = c.TileCoding.Min, c.TileCoding.Max
		}
		e, err = wrappers.NewTileCoding(e, c.TileCoding.Bins, minDims,
			maxDims, seed)
		if err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
	}
	return e, nil
}

func (c Config) create(seed uint64) (env.Environment, error) {
	switch c.Environment {
	case Chain:
		ch, err := chain.New(c.Length, c.EpisodeCutoff)
		if err != nil {
			return nil, err
		}
		return ch, nil

	case GridWorld:
		return CreateGridWorld(c.Rows, c.Cols, c.GoalX, c.GoalY, c.RandomStart,
			c.EpisodeCutoff, seed)

	case Cartpole:
		return CreateCartpole(c.EpisodeCutoff, seed)

	case LunarLander:
		return CreateLunarLander(c.EpisodeCutoff, seed)

	case Maze:
		return CreateMaze(c.Rows, c.Cols, c.MazeAlgorithm, c.OneHot,
			c.EpisodeCutoff, seed)

	case Gym:
		if gymFactory == nil {
			return nil, fmt.Errorf("gym environments require building " +
				"with the gogym tag")
		}
		return gymFactory(c.GymName, seed)
	}
	return nil, fmt.Errorf("no such environment %q", c.Environment)
}

// CreateGridWorld is a factory for creating a GridWorld. If no goal is
// given, the goal is the bottom right cell. Episodes start in the top
// left cell unless randomStart is true.
func CreateGridWorld(r, c int, goalX, goalY []int, randomStart bool,
	cutoff int, seed uint64) (env.Environment, error) {
	if len(goalX) == 0 && len(goalY) == 0 {
		goalX, goalY = []int{c - 1}, []int{r - 1}
	}
	goal, err := gridworld.NewGoal(goalX, goalY, r, c, -0.1, 1.0)
	if err != nil {
		return nil, fmt.Errorf("createGridWorld: %w", err)
	}

	var s env.Starter
	if randomStart {
		s = gridworld.NewRandomStart(r, c, seed)
	} else if s, err = gridworld.NewSingleStart(0, 0, r, c); err != nil {
		return nil, fmt.Errorf("createGridWorld: %w", err)
	}

	g, err := gridworld.New(r, c, goal, s, cutoff)
	if err != nil {
		return nil, fmt.Errorf("createGridWorld: %w", err)
	}
	return g, nil
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and default task parameters.
func CreateCartpole(cutoff int, seed uint64) (env.Environment, error) {
	task, err := cartpole.NewBalance(cartpole.DefaultStarter(seed), cutoff,
		cartpole.FailAngle)
	if err != nil {
		return nil, fmt.Errorf("createCartpole: %w", err)
	}
	return cartpole.New(task), nil
}

// CreateLunarLander is a factory for creating the discrete-action
// LunarLander with the default starting position
func CreateLunarLander(cutoff int, seed uint64) (env.Environment, error) {
	l, err := lunarlander.New(lunarlander.DefaultStarter(), cutoff, seed)
	if err != nil {
		return nil, fmt.Errorf("createLunarLander: %w", err)
	}
	return l, nil
}

// CreateMaze is a factory for creating a Maze generated by algorithm a
func CreateMaze(r, c int, a maze.Algorithm, oneHot bool, cutoff int,
	seed uint64) (env.Environment, error) {
	if a == "" {
		a = maze.Backtracking
	}
	init, err := maze.NewIniter(a, int64(seed))
	if err != nil {
		return nil, fmt.Errorf("createMaze: %w", err)
	}

	m, err := maze.New(r, c, init, oneHot, cutoff)
	if err != nil {
		return nil, fmt.Errorf("createMaze: %w", err)
	}
	return m, nil
}
