package humanoid

import (
	"strings"
	"time"
)

// Range is an inclusive-exclusive duration interval used for randomized
// pauses. Min >= Max is tolerated; the sampler clamps it.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// IntRange bounds a randomized integer parameter.
type IntRange struct {
	Min int
	Max int
}

// Profile bundles the timing parameters of one behavioral persona.
type Profile struct {
	Name        string
	ScrollDelay Range    // pause between scroll steps
	TypingDelay Range    // pause between keystrokes
	MouseSteps  IntRange // intermediate points on a pointer path
	PageWait    Range    // settle time after a navigation
}

// The three built-in personas. Careful is deliberately slow and is the one
// the challenge resolver switches to.
var (
	ProfileFast = Profile{
		Name:        "fast",
		ScrollDelay: Range{30 * time.Millisecond, 100 * time.Millisecond},
		TypingDelay: Range{30 * time.Millisecond, 150 * time.Millisecond},
		MouseSteps:  IntRange{5, 15},
		PageWait:    Range{1000 * time.Millisecond, 3000 * time.Millisecond},
	}
	ProfileNormal = Profile{
		Name:        "normal",
		ScrollDelay: Range{50 * time.Millisecond, 200 * time.Millisecond},
		TypingDelay: Range{50 * time.Millisecond, 250 * time.Millisecond},
		MouseSteps:  IntRange{10, 30},
		PageWait:    Range{2000 * time.Millisecond, 5000 * time.Millisecond},
	}
	ProfileCareful = Profile{
		Name:        "careful",
		ScrollDelay: Range{100 * time.Millisecond, 300 * time.Millisecond},
		TypingDelay: Range{100 * time.Millisecond, 400 * time.Millisecond},
		MouseSteps:  IntRange{20, 50},
		PageWait:    Range{3000 * time.Millisecond, 8000 * time.Millisecond},
	}
)

// ProfileByName maps a config string to a profile, defaulting to normal.
func ProfileByName(name string) Profile {
	switch strings.ToLower(name) {
	case "fast":
		return ProfileFast
	case "careful":
		return ProfileCareful
	default:
		return ProfileNormal
	}
}
