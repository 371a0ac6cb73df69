package prompts

import (
	"fmt"

	"storyboard-server/internal/model"
)

// LyricsLookup builds the web-grounded lyric lookup prompt.
func LyricsLookup(title, artist string) string {
	return fmt.Sprintf(`Find the full song lyrics for the song titled "%s" by the artist "%s".
If you find multiple versions, prioritize the most official or widely accepted version.
Do not generate lyrics, only find existing ones. Provide the exact lyrics.
`, title, artist)
}

// storyboardTemplate is the fixed prompt for the storyboard stage. The
// placeholders are, in order: title, artist, lyrics, total length, visual
// style, aspect ratio, total length again, scene count range, total
// length once more.
const storyboardTemplate = `
ROLE: You are an expert Visual Storyteller and Music Video Director.

TASK: Generate a comprehensive storyboard and visual treatment for a %[4]s animated video based on the song provided. Your output must be highly structured and detailed to ensure scene-to-scene consistency.

SONG DETAILS:
* Title: %[1]s
* Artist: %[2]s
* Lyrics:
"""
%[3]s
"""

CONSTRAINTS:
* Total Length: %[4]s.
* Visual Style: "%[5]s" (emphasis on dramatic lighting, rugged emotion, and dynamic compositions).
* Aspect Ratio: %[6]s.

REQUIRED OUTPUT (Follow this 3-part structure exactly):

---

### Part 1: Lyrical & Narrative Analysis

1.  **Core Theme(s):** (e.g., Betrayal, Redemption, Loss, Wanderlust)
2.  **Tone & Mood:** (e.g., Somber, Aggressive, Hopeful, Nostalgic)
3.  **Key Visual Imagery:** (List of 5-10 strong visual motifs from the lyrics. e.g., "broken glass," "dusty road," "setting sun")
4.  **The Hook:** (Identify the song's key lyrical and emotional climax).
5.  **Narrative Arc (Hero's Journey):** Map the song's story to a simplified Hero's Journey, even if it's for an anti-hero.
    *   **The Call:**
    *   **The Ordeal/Conflict:**
    *   **The Resolution/Return:**

---

### Part 2: Character Profiles

Create detailed, consistent profiles for all main characters.

*   **Character 1: [Archetype, e.g., "The Outlaw"]**
    *   **Age:**
    *   **Physical Attributes:** (Height, build, hair, face. Must align with Remington style).
    *   **Key Attire/Features:** (Consistent items they always wear, e.g., "a worn, wide-brimmed hat," "a silver locket," "a scar over the left eye").

*   **Character 2: [Archetype, e.g., "The Pursuer"]**
    *   **Age:**
    *   **Physical Attributes:**
    *   **Key Attire/Features:**

---

### Part 3: Scene-by-Scene Storyboard (Approx. %[7]s Scenes)

Generate the complete list of all scenes required for the %[4]s video.

*   **Scene 1**
    *   **Est. Timecode:** 0:00 - 0:15
    *   **Relevant Lyrics:** [Quote the lyric(s) this scene visualizes]
    *   **Scene Description:** [Describe the action, character emotion, and camera movement.]
    *   **Visual Direction (Remington Style):** [Describe the setting, lighting, and composition. Be specific about shadows, color palette, and character placement.]

*   **Scene 2**
    *   **Est. Timecode:** 0:15 - 0:30
    *   **Relevant Lyrics:** [...]
    *   **Scene Description:** [...]
    *   **Visual Direction (Remington Style):** [...]

(Continue for all scenes, mapping out the full %[4]s video)
`

// Storyboard builds the storyboard generation prompt from the song
// identity, its lyrics, and the fixed generation options.
func Storyboard(song model.SongIdentity, lyrics string, opts model.StoryboardOptions) string {
	return fmt.Sprintf(storyboardTemplate,
		song.Title,
		song.Artist,
		lyrics,
		opts.TotalLength,
		opts.VisualStyle,
		opts.AspectRatio,
		opts.SceneRange,
	)
}
