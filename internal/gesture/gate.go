package gesture

import "time"

// DefaultCooldown is the minimum spacing between re-emissions of an unchanged gesture.
const DefaultCooldown = 300 * time.Millisecond

// Gate decides whether a classification is pushed downstream. It emits on a
// gesture change, after the cooldown, or always for the configured labels.
// A change into Unknown is not treated as a change.
type Gate struct {
	cooldown int64 // ms
	always   map[Label]bool
	last     *Classification
	lastAt   int64
}

// NewGate creates a Gate. Labels in alwaysEmit bypass the cooldown.
func NewGate(cooldown time.Duration, alwaysEmit ...Label) *Gate {
	always := make(map[Label]bool, len(alwaysEmit))
	for _, l := range alwaysEmit {
		always[l] = true
	}
	return &Gate{cooldown: cooldown.Milliseconds(), always: always}
}

// Offer reports whether c should be emitted and, if so, records it as the new
// baseline. Timing uses the classification timestamps.
func (g *Gate) Offer(c Classification) bool {
	if !g.shouldEmit(c) {
		return false
	}
	g.last = &c
	g.lastAt = c.Timestamp
	return true
}

func (g *Gate) shouldEmit(c Classification) bool {
	switch {
	case g.last == nil:
		return true
	case g.always[c.Type]:
		return true
	case c.Type != g.last.Type && c.Type != Unknown:
		return true
	}
	return c.Timestamp-g.lastAt >= g.cooldown
}

// Last returns the most recently emitted classification.
func (g *Gate) Last() (Classification, bool) {
	if g.last == nil {
		return Classification{}, false
	}
	return *g.last, true
}

// Reset forgets the baseline so the next offer emits.
func (g *Gate) Reset() {
	g.last = nil
	g.lastAt = 0
}

// Gates holds one Gate per entity key.
type Gates struct {
	cooldown time.Duration
	always   []Label
	gates    map[string]*Gate
}

// NewGates creates per-entity gates sharing one configuration.
func NewGates(cooldown time.Duration, alwaysEmit ...Label) *Gates {
	return &Gates{cooldown: cooldown, always: alwaysEmit, gates: make(map[string]*Gate)}
}

// Offer routes c to the gate of c.Entity.
func (g *Gates) Offer(c Classification) bool {
	gate, ok := g.gates[c.Entity]
	if !ok {
		gate = NewGate(g.cooldown, g.always...)
		g.gates[c.Entity] = gate
	}
	return gate.Offer(c)
}

// SetCooldown changes the cooldown for every existing and future gate.
func (g *Gates) SetCooldown(cooldown time.Duration) {
	g.cooldown = cooldown
	for _, gate := range g.gates {
		gate.cooldown = cooldown.Milliseconds()
	}
}
