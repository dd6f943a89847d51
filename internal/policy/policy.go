// Package policy provides action selection strategies for the actor
package policy

// Policy interface for action selection
type Policy interface {
	// SelectAction chooses an action given the current observation
	SelectAction(observation []float64) (int, error)
}
