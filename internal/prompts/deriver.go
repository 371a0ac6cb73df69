package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// Fallback texts used when the expected pattern is absent from the
// storyboard. A missing pattern is a normal case, never an error: the
// storyboard is free-form model output and parsing it is best-effort.
const (
	overallFallback = "Create an animated music video based on the provided storyboard themes."
	sceneFallback   = "Enter a visual direction from a scene to generate its video."
)

var (
	coreThemeRe       = regexp.MustCompile(`Core Theme\(s\):\s*\(([^)]+)\)`)
	sceneOneRe        = regexp.MustCompile(`\*\*Scene 1\*\*`)
	visualDirectionRe = regexp.MustCompile(`\*\*Visual Direction \(Remington Style\):\s*`)
	sceneHeadingRe    = regexp.MustCompile(`\*\*\s*Scene \d+\s*\*\*`)
)

// DerivedPrompts are the two video prompts computed from a storyboard.
type DerivedPrompts struct {
	Overall  string
	SceneOne string
}

// Deriver extracts downstream video prompts from a generated storyboard
// document. Implementations must be pure and total: any input string,
// including the empty one, yields a result without error.
type Deriver interface {
	Derive(document string) DerivedPrompts
}

// PatternDeriver derives prompts by pattern matching on the light
// semantic structure the storyboard prompt asks the model to follow.
type PatternDeriver struct{}

// NewPatternDeriver returns the default pattern-matching deriver.
func NewPatternDeriver() *PatternDeriver {
	return &PatternDeriver{}
}

// Derive computes both prompts from the document. A document without
// the expected patterns, including the empty one, yields the fixed
// fallback texts.
func (d *PatternDeriver) Derive(document string) DerivedPrompts {
	return DerivedPrompts{
		Overall:  deriveOverall(document),
		SceneOne: deriveSceneOne(document),
	}
}

// deriveOverall looks for the "Core Theme(s)" label followed by a
// parenthesized value.
func deriveOverall(document string) string {
	m := coreThemeRe.FindStringSubmatch(document)
	if m == nil || m[1] == "" {
		return overallFallback
	}
	return fmt.Sprintf("Create a music video reflecting the themes: %s.", m[1])
}

// deriveSceneOne extracts the visual-direction field of the first scene.
// The field is scoped to the Scene 1 heading and terminated by the next
// scene heading, a section break, or the end of the document.
func deriveSceneOne(document string) string {
	heading := sceneOneRe.FindStringIndex(document)
	if heading == nil {
		return sceneFallback
	}
	rest := document[heading[1]:]

	label := visualDirectionRe.FindStringIndex(rest)
	if label == nil {
		return sceneFallback
	}
	body := rest[label[1]:]

	end := len(body)
	if m := sceneHeadingRe.FindStringIndex(body); m != nil && m[0] < end {
		end = m[0]
	}
	if i := strings.Index(body, "---"); i >= 0 && i < end {
		end = i
	}

	// Drop sub-bullet list items so nested markup does not leak into the
	// video prompt.
	lines := strings.Split(strings.TrimSpace(body[:end]), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "* ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
