package netmock

import (
	"math/rand/v2"
	"time"
)

// Scenario is optional, seeded jitter for synthetic network timing —
// currently just the handshake delay a first request to a new host
// incurs (§4.10). Grounded on the teacher's scenario/NewScenario/
// rngHop: a math/rand/v2 ChaCha8 source seeded once up front so a
// script run twice with the same Scenario produces identical jitter,
// and therefore an identical GetExecutionHash.
type Scenario struct {
	rng *rand.Rand

	minHandshake time.Duration
	maxHandshake time.Duration
}

// NewScenario builds a Scenario whose handshake delays are drawn
// uniformly from [min, max). Passing a zero seed is fine; ChaCha8 does
// not require a cryptographically strong seed here, only a
// reproducible one.
func NewScenario(seed [32]byte, minHandshake, maxHandshake time.Duration) *Scenario {
	assertf(maxHandshake >= minHandshake, "NewScenario: max (%v) < min (%v)", maxHandshake, minHandshake)
	return &Scenario{
		rng:          rand.New(rand.NewChaCha8(seed)),
		minHandshake: minHandshake,
		maxHandshake: maxHandshake,
	}
}

// rngHop draws the next float64 in [0, 1) from the seeded source.
func (s *Scenario) rngHop() float64 {
	return s.rng.Float64()
}

// HandshakeJitter returns the next synthetic handshake delay. Zero
// means "no delay" (the default when min == max == 0).
func (s *Scenario) HandshakeJitter() time.Duration {
	if s.maxHandshake <= s.minHandshake {
		return s.minHandshake
	}
	span := s.maxHandshake - s.minHandshake
	return s.minHandshake + time.Duration(s.rngHop()*float64(span))
}
