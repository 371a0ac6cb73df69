package prompts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storyboard-server/internal/prompts"
)

func TestPatternDeriver_EmptyDocument(t *testing.T) {
	d := prompts.NewPatternDeriver()

	result := d.Derive("")

	assert.Equal(t, "Create an animated music video based on the provided storyboard themes.", result.Overall)
	assert.Equal(t, "Enter a visual direction from a scene to generate its video.", result.SceneOne)
}

func TestPatternDeriver_Fallbacks(t *testing.T) {
	d := prompts.NewPatternDeriver()

	result := d.Derive("some unstructured text without the expected labels")

	assert.Equal(t, "Create an animated music video based on the provided storyboard themes.", result.Overall)
	assert.Equal(t, "Enter a visual direction from a scene to generate its video.", result.SceneOne)
}

func TestPatternDeriver_CoreThemes(t *testing.T) {
	d := prompts.NewPatternDeriver()

	doc := `### Part 1
1.  **Core Theme(s):** (Loss, Redemption)
2.  **Tone & Mood:** (Somber)
`

	result := d.Derive(doc)

	assert.Equal(t, "Create a music video reflecting the themes: Loss, Redemption.", result.Overall)
}

func TestPatternDeriver_SceneOneVisualDirection(t *testing.T) {
	d := prompts.NewPatternDeriver()

	t.Run("terminated by next scene heading", func(t *testing.T) {
		doc := `**Scene 1**
    *   **Est. Timecode:** 0:00 - 0:15
    **Visual Direction (Remington Style): A lone rider crosses a canyon at dusk.

**Scene 2**
    **Visual Direction (Remington Style): Something else entirely.
`
		result := d.Derive(doc)
		assert.Equal(t, "A lone rider crosses a canyon at dusk.", result.SceneOne)
	})

	t.Run("terminated by section break", func(t *testing.T) {
		doc := `**Scene 1**
**Visual Direction (Remington Style): Long shadows over a dusty street.
---
### Part 4
`
		result := d.Derive(doc)
		assert.Equal(t, "Long shadows over a dusty street.", result.SceneOne)
	})

	t.Run("terminated by end of document", func(t *testing.T) {
		doc := `**Scene 1**
**Visual Direction (Remington Style): Firelight on weathered faces.`
		result := d.Derive(doc)
		assert.Equal(t, "Firelight on weathered faces.", result.SceneOne)
	})

	t.Run("sub-bullet lines are stripped", func(t *testing.T) {
		doc := `**Scene 1**
**Visual Direction (Remington Style): A lone rider crosses a canyon at dusk.
* nested list item that should not leak
Second descriptive line.

**Scene 2**
`
		result := d.Derive(doc)
		assert.Equal(t, "A lone rider crosses a canyon at dusk.\nSecond descriptive line.", result.SceneOne)
	})

	t.Run("missing visual direction falls back", func(t *testing.T) {
		doc := `**Scene 1**
    *   **Scene Description:** riders at dawn
`
		result := d.Derive(doc)
		assert.Equal(t, "Enter a visual direction from a scene to generate its video.", result.SceneOne)
	})
}

func TestPatternDeriver_IsPure(t *testing.T) {
	d := prompts.NewPatternDeriver()

	doc := "1.  **Core Theme(s):** (Wanderlust)"
	first := d.Derive(doc)
	second := d.Derive(doc)

	assert.Equal(t, first, second)
}
