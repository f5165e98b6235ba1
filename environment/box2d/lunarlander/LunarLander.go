// Package lunarlander provides an implementation of the Lunar Lander
// environment with discrete actions on the Box2D physics engine.
package lunarlander

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

const (
	FPS float64 = 50

	// speed of game, adjusts forces as well
	Scale float64 = 30.0

	XGravity float64 = 0.0
	YGravity float64 = -10.0

	MainEnginePower float64 = 13.0
	SideEnginePower float64 = 0.6

	LegAway         float64 = 20.0
	LegDown         float64 = 18.0
	LegW            float64 = 2.0
	LegH            float64 = 8.0
	LegSpringTorque float64 = 40.0

	SideEngineHeight float64 = 14.0
	SideEngineAway   float64 = 12.0

	Chunks int = 11

	ViewportW float64 = 600
	ViewportH float64 = 400

	StateObservations int = 8

	// Default starting values
	InitialX      float64 = ViewportW / Scale / 2
	InitialY      float64 = ViewportH / Scale
	InitialRandom float64 = 1000.0 // Set 1500 to make game harder

	CrashReward float64 = -100
	RestReward  float64 = 100
)

// Actions in the LunarLander
const (
	NoOp int = iota
	FireLeft
	FireMain
	FireRight

	NumActions int = 4
)

// LanderPoly outlines the lander body in pixels
var LanderPoly = [][2]float64{
	{-14, 17},
	{-17, 0},
	{-17, -10},
	{17, -10},
	{17, 0},
	{14, 17},
}

// LunarLander implements the Lunar Lander environment. The lander
// starts at the top of the screen with a random initial force applied
// to it and must land on the helipad between two flags. Reward is given
// for moving towards the helipad at low speed and for each leg touching
// the ground, and firing engines is penalized. The episode ends with
// CrashReward if the lander body touches the moon or leaves the screen
// and with RestReward once the lander comes to rest.
//
// Observations are the lander's normalized position, velocity, angle,
// angular velocity, and two leg contact indicators.
type LunarLander struct {
	env.Starter
	limit *env.StepLimit

	world box2d.B2World

	moon         *box2d.B2Body
	moonVertices [][2]float64

	lander            *box2d.B2Body
	legs              []*box2d.B2Body
	leg1GroundContact bool
	leg2GroundContact bool

	helipadX1 float64
	helipadX2 float64
	helipadY  float64

	gameOver bool
	rng      distuv.Uniform

	prevShaping *float64
	currentStep ts.TimeStep
}

// DefaultStarter returns a Starter which always starts the lander at the
// top centre of the screen with forces in [-InitialRandom, InitialRandom]
// applied in each direction
func DefaultStarter() env.Starter {
	return env.NewFixedStarter([]float64{InitialX, InitialY, InitialRandom})
}

// New returns a new LunarLander. The Starter must return (x, y, force)
// vectors, where (x, y) is the initial position of the lander and force
// bounds the magnitude of the random initial force in each direction.
// Episodes are cut off after episodeSteps steps.
func New(s env.Starter, episodeSteps int, seed uint64) (*LunarLander,
	error) {
	if episodeSteps < 1 {
		return nil, fmt.Errorf("new: episodes must have a positive step "+
			"limit \n\twant(>0) \n\thave(%v)", episodeSteps)
	}

	l := &LunarLander{
		Starter: s,
		limit:   env.NewStepLimit(episodeSteps),
		rng:     distuv.Uniform{Min: -1, Max: 1, Src: rand.NewSource(seed)},
	}
	return l, nil
}

// contactDetector tracks which parts of the lander touch the moon
type contactDetector struct {
	env *LunarLander
}

func (c *contactDetector) touches(contact box2d.B2ContactInterface,
	body *box2d.B2Body) bool {
	return contact.GetFixtureA().GetBody() == body ||
		contact.GetFixtureB().GetBody() == body
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	// The ship should be landed gently on its legs
	if c.touches(contact, c.env.lander) {
		c.env.gameOver = true
	}
	if c.touches(contact, c.env.legs[0]) {
		c.env.leg1GroundContact = true
	}
	if c.touches(contact, c.env.legs[1]) {
		c.env.leg2GroundContact = true
	}
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {
	if c.touches(contact, c.env.legs[0]) {
		c.env.leg1GroundContact = false
	}
	if c.touches(contact, c.env.legs[1]) {
		c.env.leg2GroundContact = false
	}
}

func (c *contactDetector) PreSolve(box2d.B2ContactInterface,
	box2d.B2Manifold) {
}

func (c *contactDetector) PostSolve(box2d.B2ContactInterface,
	*box2d.B2ContactImpulse) {
}

// Reset generates new terrain and places the lander at a starting
// position drawn from the Starter
func (l *LunarLander) Reset() (ts.TimeStep, error) {
	start := l.Start()
	if err := validateStart(start); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	l.world = box2d.MakeB2World(box2d.MakeB2Vec2(XGravity, YGravity))
	l.world.SetContactListener(&contactDetector{l})
	l.gameOver = false
	l.leg1GroundContact = false
	l.leg2GroundContact = false
	l.prevShaping = nil

	l.createMoon()
	l.createLander(start.AtVec(0), start.AtVec(1), start.AtVec(2))

	// The first observation is taken after a single no-op step
	l.currentStep = ts.TimeStep{}
	step, done := l.step(NoOp)
	if done {
		return ts.TimeStep{}, fmt.Errorf("reset: episode ended as soon " +
			"as it began")
	}
	step = ts.New(ts.First, 0, step.Observation, 0)
	l.currentStep = step
	return step, nil
}

func (l *LunarLander) createMoon() {
	w := ViewportW / Scale
	h := ViewportH / Scale

	height := make([]float64, Chunks+1)
	for i := range height {
		height[i] = (l.rng.Rand() + 1) / 2 * (h / 2)
	}

	chunkX := make([]float64, Chunks)
	for i := range chunkX {
		chunkX[i] = w / float64(Chunks-1) * float64(i)
	}

	l.helipadX1 = chunkX[Chunks/2-1]
	l.helipadX2 = chunkX[Chunks/2+1]
	l.helipadY = h / 4
	for i := Chunks/2 - 2; i <= Chunks/2+2; i++ {
		height[i] = l.helipadY
	}

	smoothY := make([]float64, Chunks)
	for i := range smoothY {
		prev := Chunks
		if i > 0 {
			prev = i - 1
		}
		smoothY[i] = 0.33 * (height[prev] + height[i] + height[i+1])
	}

	moonDef := box2d.MakeB2BodyDef()
	moonDef.Type = box2d.B2BodyType.B2_staticBody
	l.moon = l.world.CreateBody(&moonDef)

	floor := box2d.NewB2EdgeShape()
	floor.Set(box2d.MakeB2Vec2(0, 0), box2d.MakeB2Vec2(w, 0))
	floorFix := box2d.MakeB2FixtureDef()
	floorFix.Shape = floor
	l.moon.CreateFixtureFromDef(&floorFix)

	l.moonVertices = make([][2]float64, 0, 2*(Chunks-1))
	for i := 0; i < Chunks-1; i++ {
		p1 := [2]float64{chunkX[i], smoothY[i]}
		p2 := [2]float64{chunkX[i+1], smoothY[i+1]}
		l.moonVertices = append(l.moonVertices, p1, p2)

		edge := box2d.NewB2EdgeShape()
		edge.Set(box2d.MakeB2Vec2(p1[0], p1[1]), box2d.MakeB2Vec2(p2[0], p2[1]))
		edgeFix := box2d.MakeB2FixtureDef()
		edgeFix.Shape = edge
		edgeFix.Density = 0.0
		edgeFix.Friction = 0.1
		l.moon.CreateFixtureFromDef(&edgeFix)
	}
}

func (l *LunarLander) createLander(x, y, force float64) {
	landerDef := box2d.MakeB2BodyDef()
	landerDef.Type = box2d.B2BodyType.B2_dynamicBody
	landerDef.Position = box2d.MakeB2Vec2(x, y)
	l.lander = l.world.CreateBody(&landerDef)

	vertices := make([]box2d.B2Vec2, len(LanderPoly))
	for i, v := range LanderPoly {
		vertices[i] = box2d.MakeB2Vec2(v[0]/Scale, v[1]/Scale)
	}
	landerShape := box2d.NewB2PolygonShape()
	landerShape.Set(vertices, len(vertices))

	landerFix := box2d.MakeB2FixtureDef()
	landerFix.Shape = landerShape
	landerFix.Density = 5.0
	landerFix.Friction = 0.1
	landerFix.Restitution = 0.0
	landerFix.Filter = box2d.MakeB2Filter()
	landerFix.Filter.CategoryBits = 0x0010
	landerFix.Filter.MaskBits = 0x001 // collide only with ground
	l.lander.CreateFixtureFromDef(&landerFix)

	l.lander.ApplyForceToCenter(box2d.MakeB2Vec2(l.rng.Rand()*force,
		l.rng.Rand()*force), true)

	l.legs = make([]*box2d.B2Body, 0, 2)
	for _, i := range []float64{-1, 1} {
		legDef := box2d.MakeB2BodyDef()
		legDef.Type = box2d.B2BodyType.B2_dynamicBody
		legDef.Position = box2d.MakeB2Vec2(x-i*LegAway/Scale, y)
		legDef.Angle = i * 0.05
		leg := l.world.CreateBody(&legDef)
		l.legs = append(l.legs, leg)

		legShape := box2d.NewB2PolygonShape()
		legShape.SetAsBox(LegW/Scale, LegH/Scale)

		legFix := box2d.MakeB2FixtureDef()
		legFix.Shape = legShape
		legFix.Density = 1.0
		legFix.Restitution = 0.0
		legFix.Filter = box2d.MakeB2Filter()
		legFix.Filter.CategoryBits = 0x0020
		legFix.Filter.MaskBits = 0x001
		leg.CreateFixtureFromDef(&legFix)

		rjd := box2d.MakeB2RevoluteJointDef()
		rjd.BodyA = l.lander
		rjd.BodyB = leg
		rjd.LocalAnchorA = box2d.MakeB2Vec2(0, 0)
		rjd.LocalAnchorB = box2d.MakeB2Vec2(i*LegAway/Scale, LegDown/Scale)
		rjd.EnableMotor = true
		rjd.EnableLimit = true
		rjd.MaxMotorTorque = LegSpringTorque
		rjd.MotorSpeed = 0.3 * i
		if i < 0 {
			rjd.LowerAngle = 0.9 - 0.5
			rjd.UpperAngle = 0.9
		} else {
			rjd.LowerAngle = -0.9
			rjd.UpperAngle = -0.9 + 0.5
		}
		l.world.CreateJoint(&rjd)
	}
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (l *LunarLander) Step(a int) (ts.TimeStep, bool, error) {
	if err := env.ValidateAction(a, NumActions); err != nil {
		return ts.TimeStep{}, true, err
	}
	if l.lander == nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: call Reset() " +
			"before Step()")
	}
	if l.currentStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset() before Step()")
	}

	step, done := l.step(a)
	l.currentStep = step
	return step, done, nil
}

func (l *LunarLander) step(a int) (ts.TimeStep, bool) {
	angle := l.lander.GetAngle()
	tip := [2]float64{math.Sin(angle), math.Cos(angle)}
	side := [2]float64{-tip[1], tip[0]}
	dispersion := [2]float64{l.rng.Rand() / Scale, l.rng.Rand() / Scale}
	pos := l.lander.GetPosition()

	mPower := 0.0
	if a == FireMain {
		mPower = 1.0
		ox := tip[0]*(4/Scale+2*dispersion[0]) + side[0]*dispersion[1]
		oy := -tip[1]*(4/Scale+2*dispersion[0]) - side[1]*dispersion[1]

		l.lander.ApplyLinearImpulse(
			box2d.MakeB2Vec2(-ox*MainEnginePower*mPower,
				-oy*MainEnginePower*mPower),
			box2d.MakeB2Vec2(pos.X+ox, pos.Y+oy),
			true,
		)
	}

	sPower := 0.0
	if a == FireLeft || a == FireRight {
		direction := float64(a - FireMain)
		sPower = 1.0
		ox := tip[0]*dispersion[0] + side[0]*(3*dispersion[1]+
			direction*SideEngineAway/Scale)
		oy := -tip[1]*dispersion[0] - side[1]*(3*dispersion[1]+
			direction*SideEngineAway/Scale)

		l.lander.ApplyLinearImpulse(
			box2d.MakeB2Vec2(-ox*SideEnginePower*sPower,
				-oy*SideEnginePower*sPower),
			box2d.MakeB2Vec2(pos.X+ox-tip[0]*17/Scale,
				pos.Y+oy+tip[1]*SideEngineHeight/Scale),
			true,
		)
	}

	l.world.Step(1.0/FPS, 6*int(Scale), 2*int(Scale))

	obs := l.observation()
	state := obs.RawVector().Data

	shaping := -100*math.Hypot(state[0], state[1]) -
		100*math.Hypot(state[2], state[3]) -
		100*math.Abs(state[4]) +
		10*state[6] + 10*state[7]

	reward := 0.0
	if l.prevShaping != nil {
		reward = shaping - *l.prevShaping
	}
	l.prevShaping = &shaping

	// Less fuel spent is better
	reward -= mPower * 0.30
	reward -= sPower * 0.03

	step := ts.New(ts.Mid, reward, obs, l.currentStep.Number+1)
	if l.gameOver || math.Abs(state[0]) >= 1.0 {
		step.Reward = CrashReward
		step.SetEnd(ts.TerminalStateReached)
	} else if !l.lander.IsAwake() {
		step.Reward = RestReward
		step.SetEnd(ts.TerminalStateReached)
	} else {
		l.limit.End(&step)
	}
	return step, step.Last()
}

func (l *LunarLander) observation() *mat.VecDense {
	pos := l.lander.GetPosition()
	vel := l.lander.GetLinearVelocity()

	var leg1, leg2 float64
	if l.leg1GroundContact {
		leg1 = 1.0
	}
	if l.leg2GroundContact {
		leg2 = 1.0
	}

	return mat.NewVecDense(StateObservations, []float64{
		(pos.X - ViewportW/Scale/2) / (ViewportW / Scale / 2),
		(pos.Y - (l.helipadY + LegDown/Scale)) / (ViewportH / Scale / 2),
		vel.X * (ViewportW / Scale / 2) / FPS,
		vel.Y * (ViewportH / Scale / 2) / FPS,
		math.Remainder(l.lander.GetAngle(), 2*math.Pi),
		20.0 * l.lander.GetAngularVelocity() / FPS,
		leg1,
		leg2,
	})
}

// GroundContact returns whether each leg touches the ground
func (l *LunarLander) GroundContact() (bool, bool) {
	return l.leg1GroundContact, l.leg2GroundContact
}

// ObservationSpec returns the observation specification of the
// environment. Positions and velocities are unbounded.
func (l *LunarLander) ObservationSpec() env.Spec {
	inf := math.Inf(1)
	lower := mat.NewVecDense(StateObservations, []float64{
		-1, -inf, -inf, -inf, -math.Pi, -inf, 0, 0,
	})
	upper := mat.NewVecDense(StateObservations, []float64{
		1, inf, inf, inf, math.Pi, inf, 1, 1,
	})

	return env.NewSpec(mat.NewVecDense(StateObservations, nil),
		env.Observation, lower, upper, env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (l *LunarLander) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(NumActions)
}

func (l *LunarLander) String() string {
	return fmt.Sprintf("LunarLander | Step: %v", l.currentStep.Number)
}

func validateStart(start *mat.VecDense) error {
	if start.Len() != 3 {
		return fmt.Errorf("starting values should be (x, y, force) "+
			"\n\twant(3) \n\thave(%v)", start.Len())
	}

	x, y := start.AtVec(0), start.AtVec(1)
	if x <= 0 || x >= ViewportW/Scale {
		return fmt.Errorf("x position out of bounds, expected x ϵ (0, %v) "+
			"but got x = %v", ViewportW/Scale, x)
	}
	if y <= ViewportH/Scale/2 || y > InitialY {
		return fmt.Errorf("y position out of bounds, expected y ϵ (%v, %v] "+
			"but got y = %v", ViewportH/Scale/2, InitialY, y)
	}
	if start.AtVec(2) < 0 {
		return fmt.Errorf("initial force must be non-negative")
	}
	return nil
}
