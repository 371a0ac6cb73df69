package model

// AspectRatio of a generated video. The setting is shared between the two
// video slots and is read at the moment a generation call is issued.
type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
)

// Valid reports whether the value is one of the supported ratios.
func (r AspectRatio) Valid() bool {
	return r == AspectRatioLandscape || r == AspectRatioPortrait
}

// Resolution of a generated video.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

// Valid reports whether the value is one of the supported resolutions.
func (r Resolution) Valid() bool {
	return r == Resolution720p || r == Resolution1080p
}

// SongIdentity is the identity key for a lyric lookup request.
type SongIdentity struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// LyricsRecord holds the looked-up lyrics together with the grounding
// source citations. SourceURLs is empty when the lookup used no grounding
// or found none.
type LyricsRecord struct {
	Text       string   `json:"text"`
	SourceURLs []string `json:"source_urls,omitempty"`
}

// VideoConfig are the parameters of a single video generation request.
type VideoConfig struct {
	AspectRatio AspectRatio `json:"aspect_ratio"`
	Resolution  Resolution  `json:"resolution"`
}

// TaskState is the per-stage generation state surfaced to the client.
// Busy and Error are mutually exclusive at rest: starting a task clears
// Error before setting Busy, completion sets at most one of the two.
type TaskState struct {
	Busy  bool   `json:"busy"`
	Error string `json:"error,omitempty"`
}

// VideoState is the task state of one video slot plus its result locator.
type VideoState struct {
	TaskState
	URL string `json:"url,omitempty"`
}

// VideoSlot names one of the two independent video generation slots.
type VideoSlot string

const (
	VideoSlotOverall VideoSlot = "overall"
	VideoSlotCustom  VideoSlot = "custom"
)

// Valid reports whether the value names a known slot.
func (s VideoSlot) Valid() bool {
	return s == VideoSlotOverall || s == VideoSlotCustom
}

// Snapshot is an immutable copy of the whole session state, taken under
// the controller lock. Callers observing Busy == false on a task may
// trust its Error/result fields are final for that invocation.
type Snapshot struct {
	Song               SongIdentity `json:"song"`
	Lyrics             LyricsRecord `json:"lyrics"`
	Storyboard         string       `json:"storyboard"`
	OverallVideoPrompt string       `json:"overall_video_prompt"`
	CustomVideoPrompt  string       `json:"custom_video_prompt"`
	AspectRatio        AspectRatio  `json:"aspect_ratio"`
	Resolution         Resolution   `json:"resolution"`
	LyricsTask         TaskState    `json:"lyrics_task"`
	StoryboardTask     TaskState    `json:"storyboard_task"`
	OverallVideo       VideoState   `json:"overall_video"`
	CustomVideo        VideoState   `json:"custom_video"`
}

// StoryboardOptions are the fixed generation parameters baked into the
// storyboard prompt. They are configuration constants, not user-tunable.
type StoryboardOptions struct {
	VisualStyle string
	TotalLength string
	AspectRatio string
	SceneRange  string
}
