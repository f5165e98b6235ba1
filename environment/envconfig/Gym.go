//go:build gogym

package envconfig

import (
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/gym"
)

func init() {
	gymFactory = func(name string, seed uint64) (env.Environment, error) {
		g, err := gym.New(name, seed)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}
