package persona

import (
	"math"
	"strings"
	"testing"

	"github.com/bdobrica/Neon/internal/neon/affect"
)

func TestBuild_RelationshipTiers(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name      string
		emotion   affect.Emotion
		affection float64
		want      string
		flirt     string
	}{
		{"stranger", affect.Calm, 10, "Sassy Stranger", "ACTIVE"},
		{"bestie lower edge", affect.Happy, 30, "Flirty Bestie", "ACTIVE"},
		{"bestie", affect.Playful, 74.9, "Flirty Bestie", "ACTIVE"},
		{"partner edge", affect.Flirty, 75, "Devoted Partner", "ACTIVE"},
		{"mad overrides affection", affect.Mad, 95, "Conflict Mode", "DISABLED"},
		{"annoyed is conflict", affect.Annoyed, 95, "Conflict Mode", "DISABLED"},
		{"legacy angry label is conflict", affect.Emotion("ANGRY"), 50, "Conflict Mode", "DISABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.Build(tt.emotion, 0.5, tt.affection)
			if !strings.Contains(got, "- Relationship: "+tt.want) {
				t.Errorf("prompt lacks relationship %q:\n%s", tt.want, got)
			}
			if !strings.Contains(got, "- Flirting: "+tt.flirt) {
				t.Errorf("prompt lacks flirting %q:\n%s", tt.flirt, got)
			}
		})
	}
}

func TestBuild_ActionGuide(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		intensity float64
		want      string
	}{
		{0.9, "High Intensity"},
		{0.75, "Normal Intensity"},
		{0.5, "Normal Intensity"},
		{0.25, "Normal Intensity"},
		{0.2, "Low Intensity"},
	}
	for _, tt := range tests {
		got := cfg.Build(affect.Calm, tt.intensity, 50)
		if !strings.Contains(got, "-> "+tt.want) {
			t.Errorf("Build(intensity=%v) lacks %q", tt.intensity, tt.want)
		}
	}
}

func TestBuild_LiveStatusLine(t *testing.T) {
	got := DefaultConfig().Build(affect.Happy, 0.5625, 50)
	if !strings.Contains(got, "- Emotion: HAPPY (Intensity: 0.56)") {
		t.Errorf("status line missing:\n%s", got)
	}
	if strings.Contains(got, "{{") {
		t.Errorf("unreplaced placeholder:\n%s", got)
	}
	if !strings.HasPrefix(got, "ROLE: You are Neon.") {
		t.Errorf("prompt should open with the identity line:\n%s", got)
	}
}

func TestBuild_NonFiniteFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	for _, tc := range []struct{ i, a float64 }{
		{math.NaN(), 90},
		{0.9, math.Inf(1)},
		{math.Inf(-1), math.NaN()},
	} {
		got := cfg.Build(affect.Calm, tc.i, tc.a)
		if !strings.Contains(got, "(Intensity: 0.50)") || !strings.Contains(got, "Flirty Bestie") {
			t.Errorf("Build(%v, %v) did not fall back to 0.5/50:\n%s", tc.i, tc.a, got)
		}
	}
}

func TestBuild_ClampsOutOfRange(t *testing.T) {
	got := DefaultConfig().Build(affect.Calm, 3, -20)
	if !strings.Contains(got, "(Intensity: 1.00)") || !strings.Contains(got, "Sassy Stranger") {
		t.Errorf("out-of-range values not clamped:\n%s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	if err := base.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no name", func(c *Config) { c.Name = " " }},
		{"no tiers", func(c *Config) { c.Relationship = nil }},
		{"catch-all first", func(c *Config) { c.Relationship = []Tier{{Label: "a", Tone: "x"}, {Below: 50, Label: "b", Tone: "y"}} }},
		{"bounded last", func(c *Config) { c.Relationship = []Tier{{Below: 50, Label: "a", Tone: "x"}} }},
		{"decreasing", func(c *Config) {
			c.Relationship = []Tier{{Below: 50, Label: "a", Tone: "x"}, {Below: 20, Label: "b", Tone: "y"}, {Label: "c", Tone: "z"}}
		}},
		{"inverted actions", func(c *Config) { c.Actions.LowBelow = 0.9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
