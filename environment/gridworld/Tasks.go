package gridworld

import (
	"fmt"

	"github.com/samuelfneumann/godqn/environment"
)

// Goal represents the task of reaching goal states in a GridWorld.
// Every step reaching a goal cell yields goalReward, all other steps
// yield timeStepReward.
type Goal struct {
	goals          map[int]struct{}
	r, c           int // total rows and columns in environment
	timeStepReward float64
	goalReward     float64
}

// NewGoal creates and returns a new goal at positions (x[i], y[i]),
// given that the gridworld has r rows and c columns
func NewGoal(x, y []int, r, c int, timeStepReward,
	goalReward float64) (*Goal, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("newGoal: x length (%d) != y length (%d)",
			len(x), len(y))
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("newGoal: at least one goal is required")
	}

	goals := make(map[int]struct{}, len(x))
	for i := range x {
		if x[i] < 0 || x[i] >= c {
			return nil, fmt.Errorf("newGoal: x[%d] = %d outside [0, %d)",
				i, x[i], c)
		} else if y[i] < 0 || y[i] >= r {
			return nil, fmt.Errorf("newGoal: y[%d] = %d outside [0, %d)",
				i, y[i], r)
		}
		goals[cToInd(x[i], y[i], c)] = struct{}{}
	}
	return &Goal{goals, r, c, timeStepReward, goalReward}, nil
}

// AtGoal returns whether (x, y) is a goal cell
func (g *Goal) AtGoal(x, y int) bool {
	_, ok := g.goals[cToInd(x, y, g.c)]
	return ok
}

// Reward returns the reward for a step landing on (x, y)
func (g *Goal) Reward(x, y int) float64 {
	if g.AtGoal(x, y) {
		return g.goalReward
	}
	return g.timeStepReward
}

// String returns the Goal as a string
func (g *Goal) String() string {
	coords := make([][2]int, 0, len(g.goals))
	for ind := range g.goals {
		coords = append(coords, [2]int{ind % g.c, ind / g.c})
	}
	return fmt.Sprint(coords)
}

// NewSingleStart returns a Starter which always starts the agent at
// (x, y) in a gridworld with r rows and c columns
func NewSingleStart(x, y, r, c int) (environment.Starter, error) {
	if x < 0 || x >= c {
		return nil, fmt.Errorf("newSingleStart: x = %d outside [0, %d)", x, c)
	} else if y < 0 || y >= r {
		return nil, fmt.Errorf("newSingleStart: y = %d outside [0, %d)", y, r)
	}
	return environment.NewFixedStarter([]float64{float64(x), float64(y)}), nil
}

// NewRandomStart returns a Starter which starts the agent uniformly
// randomly in a gridworld with r rows and c columns
func NewRandomStart(r, c int, seed uint64) environment.Starter {
	return environment.NewCategoricalStarter([]int{c, r}, seed)
}
