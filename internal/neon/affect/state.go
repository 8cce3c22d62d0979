package affect

const (
	MinIntensity      = 0.1
	MaxIntensity      = 1.0
	MinAffection      = 0.0
	MaxAffection      = 100.0
	BaselineIntensity = 0.5
	BaselineAffection = 50.0
)

// State is the live affect vector. Intensity and Affection are clamped on
// every mutation path.
type State struct {
	Emotion   Emotion `json:"emotion"`
	Intensity float64 `json:"intensity"`
	Affection float64 `json:"affection"`
	LastInput string  `json:"last_input"`
}

// DefaultState is the state of a companion that has never been talked to.
func DefaultState() State {
	return State{
		Emotion:   Calm,
		Intensity: BaselineIntensity,
		Affection: BaselineAffection,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampIntensity clamps v to [MinIntensity, MaxIntensity].
func ClampIntensity(v float64) float64 { return clamp(v, MinIntensity, MaxIntensity) }

// ClampAffection clamps v to [MinAffection, MaxAffection].
func ClampAffection(v float64) float64 { return clamp(v, MinAffection, MaxAffection) }
