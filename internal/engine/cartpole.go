package engine

import (
	"math"
	"math/rand"
)

const (
	gravity        = 9.8
	massCart       = 1.0
	massPole       = 0.1
	totalMass      = massCart + massPole
	poleHalfLength = 0.5
	poleMassLength = massPole * poleHalfLength
	forceMag       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12 * math.Pi / 180
)

// CartPole is the classic pole balancing task. Action 0 pushes left, 1 pushes
// right. Every step that keeps the pole up earns a reward of 1.
type CartPole struct {
	rng      *rand.Rand
	maxSteps int

	x, xDot, theta, thetaDot float64
	steps                    int
}

// NewCartPole returns a cartpole that truncates episodes after maxSteps.
func NewCartPole(rng *rand.Rand, maxSteps int) *CartPole {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	c := &CartPole{rng: rng, maxSteps: maxSteps}
	c.Reset()
	return c
}

func (c *CartPole) ActionSpace() int {
	return 2
}

func (c *CartPole) Reset() []float64 {
	c.x = c.uniform()
	c.xDot = c.uniform()
	c.theta = c.uniform()
	c.thetaDot = c.uniform()
	c.steps = 0
	return c.observation()
}

func (c *CartPole) Step(action int) ([]float64, float64, bool) {
	force := forceMag
	if action == 0 {
		force = -forceMag
	}

	cosTheta := math.Cos(c.theta)
	sinTheta := math.Sin(c.theta)

	temp := (force + poleMassLength*c.thetaDot*c.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) /
		(poleHalfLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	c.x += tau * c.xDot
	c.xDot += tau * xAcc
	c.theta += tau * c.thetaDot
	c.thetaDot += tau * thetaAcc
	c.steps++

	fell := math.Abs(c.x) > xThreshold || math.Abs(c.theta) > thetaThreshold
	reward := 1.0
	if fell {
		reward = 0
	}
	done := fell || (c.maxSteps > 0 && c.steps >= c.maxSteps)
	return c.observation(), reward, done
}

func (c *CartPole) observation() []float64 {
	return []float64{c.x, c.xDot, c.theta, c.thetaDot}
}

// uniform returns a value in [-0.05, 0.05).
func (c *CartPole) uniform() float64 {
	return c.rng.Float64()*0.1 - 0.05
}
