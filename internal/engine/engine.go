// Package engine provides the environments an actor steps through.
package engine

// Engine is a single-agent environment with a discrete action space.
type Engine interface {
	// Reset starts a new episode and returns the first observation.
	Reset() []float64

	// Step applies action and returns the next observation, the reward for
	// the action and whether the episode ended.
	Step(action int) ([]float64, float64, bool)

	// ActionSpace returns the number of discrete actions.
	ActionSpace() int
}
