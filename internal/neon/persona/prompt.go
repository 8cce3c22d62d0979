package persona

import (
	"fmt"
	"math"
	"strings"

	"github.com/bdobrica/Neon/internal/neon/affect"
)

// Fallbacks used when the caller passes a non-finite number.
const (
	fallbackIntensity = 0.5
	fallbackAffection = 50.0
)

// IsConflict reports whether emotion puts the persona in conflict mode.
func (c *Config) IsConflict(emotion affect.Emotion) bool {
	e := strings.ToLower(string(emotion))
	for _, ce := range c.ConflictEmotions {
		if strings.ToLower(ce) == e {
			return true
		}
	}
	return false
}

// TierFor returns the relationship tier for emotion and affection. Conflict
// mode overrides affection entirely.
func (c *Config) TierFor(emotion affect.Emotion, affection float64) Tier {
	if c.IsConflict(emotion) {
		return c.Conflict
	}
	for _, t := range c.Relationship {
		if t.Below == 0 || affection < t.Below {
			return t
		}
	}
	return Tier{}
}

// ActionGuide returns the body-language guidance for an intensity.
func (c *Config) ActionGuide(intensity float64) string {
	switch {
	case intensity > c.Actions.HighAbove:
		return c.Actions.High
	case intensity < c.Actions.LowBelow:
		return c.Actions.Low
	default:
		return c.Actions.Normal
	}
}

// Build renders the system instruction for the given affect state.
// Non-finite inputs fall back to neutral values and everything is clamped
// to its documented range before rendering.
func (c *Config) Build(emotion affect.Emotion, intensity, affection float64) string {
	i, a := normalise(intensity, affection)

	tier := c.TierFor(emotion, a)
	flirt := c.FlirtActive
	if c.IsConflict(emotion) {
		flirt = c.FlirtDisabled
	}
	actions := c.ActionGuide(i)

	var sb strings.Builder

	sb.WriteString("ROLE: ")
	sb.WriteString(strings.TrimSpace(c.Identity))
	if lang := strings.TrimSpace(c.Language); lang != "" {
		sb.WriteString("\nLANGUAGE: ")
		sb.WriteString(lang)
	}

	sb.WriteString("\n\n[LIVE STATUS]\n")
	fmt.Fprintf(&sb, "- Emotion: %s (Intensity: %.2f)\n", strings.ToUpper(string(emotion)), i)
	fmt.Fprintf(&sb, "- Relationship: %s\n", tier.Label)
	if tier.Nicknames != "" {
		fmt.Fprintf(&sb, "- Nicknames: %s (Use sparingly, don't overdo it)\n", tier.Nicknames)
	}
	fmt.Fprintf(&sb, "- Flirting: %s", flirt)

	if strategy := strings.TrimSpace(c.Strategy); strategy != "" {
		r := strings.NewReplacer("{{tone}}", tier.Tone, "{{actions}}", actions)
		sb.WriteString("\n\n[RESPONSE STRATEGY]\n")
		sb.WriteString(r.Replace(strategy))
	}

	if len(c.Style) > 0 {
		sb.WriteString("\n\n[STYLE GUIDELINES]")
		for _, s := range c.Style {
			sb.WriteString("\n- ")
			sb.WriteString(strings.TrimSpace(s))
		}
	}

	if goal := strings.TrimSpace(c.Goal); goal != "" {
		sb.WriteString("\n\n[GOAL]\n")
		sb.WriteString(goal)
	}
	return sb.String()
}

func normalise(intensity, affection float64) (float64, float64) {
	if math.IsNaN(intensity) || math.IsInf(intensity, 0) || math.IsNaN(affection) || math.IsInf(affection, 0) {
		return fallbackIntensity, fallbackAffection
	}
	return math.Max(0, math.Min(1, intensity)), math.Max(0, math.Min(100, affection))
}
