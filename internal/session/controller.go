package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storyboard-server/internal/gemini"
	"storyboard-server/internal/model"
	"storyboard-server/internal/prompts"
)

// taskKind names one of the four asynchronous stages.
type taskKind string

const (
	taskLyrics       taskKind = "lyrics"
	taskStoryboard   taskKind = "storyboard"
	taskVideoOverall taskKind = "video_overall"
	taskVideoCustom  taskKind = "video_custom"
)

// downstreamOf declares, per upstream stage, which stages' stored
// results and errors it invalidates when it (re)starts. Consulted by a
// single reset routine so adding a downstream artifact means touching
// one table, not every handler.
var downstreamOf = map[taskKind][]taskKind{
	taskLyrics:       {taskStoryboard, taskVideoOverall, taskVideoCustom},
	taskStoryboard:   {taskVideoOverall, taskVideoCustom},
	taskVideoOverall: nil,
	taskVideoCustom:  nil,
}

// taskState is the internal per-stage bookkeeping. seq counts
// invocations; a completion carrying a stale seq is dropped instead of
// overwriting state that a reset or relaunch already replaced.
type taskState struct {
	busy   bool
	err    string
	seq    uint64
	cancel context.CancelFunc
}

// Controller owns the whole session state and is the only writer to it.
// Every operation is an atomic read-modify-write under the controller
// lock; network calls run in goroutines and re-acquire the lock to
// record their outcome.
type Controller struct {
	logger  *zap.Logger
	client  GenerationClient
	creds   CredentialGate
	deriver prompts.Deriver

	// onChange is invoked outside the lock with a fresh snapshot after
	// every observable state transition. May be nil.
	onChange func(model.Snapshot)

	ctx       context.Context
	cancelAll context.CancelFunc

	mu            sync.Mutex
	song          model.SongIdentity
	lyrics        model.LyricsRecord
	storyboard    string
	overallPrompt string
	customPrompt  string
	aspectRatio   model.AspectRatio
	resolution    model.Resolution
	videoURLs     map[taskKind]string
	tasks         map[taskKind]*taskState
}

// NewController creates a controller in its initial empty state.
func NewController(
	logger *zap.Logger,
	client GenerationClient,
	creds CredentialGate,
	deriver prompts.Deriver,
	onChange func(model.Snapshot),
) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		logger:      logger,
		client:      client,
		creds:       creds,
		deriver:     deriver,
		onChange:    onChange,
		ctx:         ctx,
		cancelAll:   cancel,
		aspectRatio: model.AspectRatioLandscape,
		resolution:  model.Resolution720p,
		videoURLs:   make(map[taskKind]string),
		tasks: map[taskKind]*taskState{
			taskLyrics:       {},
			taskStoryboard:   {},
			taskVideoOverall: {},
			taskVideoCustom:  {},
		},
	}
}

// Close releases every background task owned by the controller. The
// controller must not be used afterwards.
func (c *Controller) Close() {
	c.cancelAll()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// UpdateIdentity replaces the song identity. Pure state replacement:
// validation is deferred to the lookup and generation operations.
func (c *Controller) UpdateIdentity(song model.SongIdentity) {
	c.mu.Lock()
	c.song = song
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// SetLyrics replaces the lyrics with user-edited text. Hand-edited
// lyrics carry no source citations, and changing the upstream input
// invalidates the storyboard and everything derived from it.
func (c *Controller) SetLyrics(text string) {
	c.mu.Lock()
	c.lyrics = model.LyricsRecord{Text: text}
	c.invalidateDownstreamLocked(taskLyrics)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// SetCustomPrompt replaces the custom video prompt.
func (c *Controller) SetCustomPrompt(prompt string) {
	c.mu.Lock()
	c.customPrompt = prompt
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// SetAspectRatio updates the shared aspect ratio setting. It takes
// effect on the next video generation for either slot and has no effect
// on in-flight or completed ones.
func (c *Controller) SetAspectRatio(ratio model.AspectRatio) error {
	if !ratio.Valid() {
		return fmt.Errorf("%w: unsupported aspect ratio %q", ErrValidation, ratio)
	}
	c.mu.Lock()
	c.aspectRatio = ratio
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// SetResolution updates the shared resolution setting, same semantics as
// SetAspectRatio.
func (c *Controller) SetResolution(resolution model.Resolution) error {
	if !resolution.Valid() {
		return fmt.Errorf("%w: unsupported resolution %q", ErrValidation, resolution)
	}
	c.mu.Lock()
	c.resolution = resolution
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// LookupLyrics starts the lyric lookup stage. A fresh lookup invalidates
// everything downstream before the network call is issued.
func (c *Controller) LookupLyrics() error {
	c.mu.Lock()
	if strings.TrimSpace(c.song.Title) == "" || strings.TrimSpace(c.song.Artist) == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: both title and artist are required", ErrValidation)
	}
	t := c.tasks[taskLyrics]
	if t.busy {
		c.mu.Unlock()
		return fmt.Errorf("%w: lyric lookup", ErrTaskBusy)
	}
	t.busy = true
	t.err = ""
	t.seq++
	seq := t.seq
	c.invalidateDownstreamLocked(taskLyrics)
	title, artist := c.song.Title, c.song.Artist
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	go c.runLyricsLookup(seq, title, artist)
	return nil
}

func (c *Controller) runLyricsLookup(seq uint64, title, artist string) {
	text, sourceURLs, err := c.client.LookupLyrics(c.ctx, title, artist)

	c.mu.Lock()
	t := c.tasks[taskLyrics]
	if t.seq != seq {
		c.mu.Unlock()
		return
	}
	t.busy = false
	if err != nil {
		c.logger.Error("Lyric lookup failed", zap.String("title", title), zap.String("artist", artist), zap.Error(err))
		c.lyrics = model.LyricsRecord{}
		t.err = fmt.Sprintf("Failed to look up lyrics: %v", err)
	} else {
		c.lyrics = model.LyricsRecord{Text: text, SourceURLs: sourceURLs}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// GenerateStoryboard starts the storyboard stage. The previous document
// and both video slots' stored outcomes become stale immediately.
func (c *Controller) GenerateStoryboard() error {
	c.mu.Lock()
	if strings.TrimSpace(c.lyrics.Text) == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: lyrics are required to generate a storyboard", ErrValidation)
	}
	t := c.tasks[taskStoryboard]
	if t.busy {
		c.mu.Unlock()
		return fmt.Errorf("%w: storyboard generation", ErrTaskBusy)
	}
	t.busy = true
	t.err = ""
	t.seq++
	seq := t.seq
	c.setStoryboardLocked("")
	c.invalidateDownstreamLocked(taskStoryboard)
	song := c.song
	lyrics := c.lyrics.Text
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	go c.runStoryboardGeneration(seq, song, lyrics)
	return nil
}

func (c *Controller) runStoryboardGeneration(seq uint64, song model.SongIdentity, lyrics string) {
	document, err := c.client.GenerateStoryboard(c.ctx, song, lyrics)

	c.mu.Lock()
	t := c.tasks[taskStoryboard]
	if t.seq != seq {
		c.mu.Unlock()
		return
	}
	t.busy = false
	if err != nil {
		c.logger.Error("Storyboard generation failed", zap.String("title", song.Title), zap.Error(err))
		t.err = fmt.Sprintf("Failed to generate storyboard: %v", err)
	} else {
		c.setStoryboardLocked(document)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// GenerateVideo starts a video generation for one slot. The two slots
// are fully independent: generating one never resets the other.
// Relaunching a slot cancels that slot's in-flight polling task, if any.
func (c *Controller) GenerateVideo(slot model.VideoSlot, prompt string) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: unknown video slot %q", ErrValidation, slot)
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: a video prompt is required", ErrValidation)
	}
	kind := videoTask(slot)

	c.mu.Lock()
	t := c.tasks[kind]
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.busy = true
	t.err = ""
	t.seq++
	seq := t.seq
	c.videoURLs[kind] = ""
	ctx, cancel := context.WithCancel(c.ctx)
	t.cancel = cancel
	videoCfg := model.VideoConfig{AspectRatio: c.aspectRatio, Resolution: c.resolution}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	go c.runVideoGeneration(ctx, kind, seq, prompt, videoCfg)
	return nil
}

func (c *Controller) runVideoGeneration(ctx context.Context, kind taskKind, seq uint64, prompt string, videoCfg model.VideoConfig) {
	if !c.creds.HasCredential(ctx) {
		c.logger.Warn("No API credential selected for video generation, requesting selection")
		if err := c.creds.RequestCredential(ctx); err != nil {
			c.logger.Warn("Credential selection request failed", zap.Error(err))
		}
	}

	url, err := c.client.GenerateVideo(ctx, prompt, videoCfg)

	c.mu.Lock()
	t := c.tasks[kind]
	if t.seq != seq {
		c.mu.Unlock()
		return
	}
	t.busy = false
	t.cancel = nil
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		c.logger.Error("Video generation failed", zap.String("slot", string(kind)), zap.Error(err))
		t.err = fmt.Sprintf("Failed to generate video: %v", err)
		if errors.Is(err, gemini.ErrAuth) {
			// Fire-and-forget: ask the host to re-select the credential,
			// the error above is surfaced regardless.
			go c.requestCredentialReselection()
		}
	} else {
		c.videoURLs[kind] = url
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// Reset clears all session state back to initial values and releases
// every in-flight video task.
func (c *Controller) Reset() {
	c.mu.Lock()
	for _, t := range c.tasks {
		if t.cancel != nil {
			t.cancel()
			t.cancel = nil
		}
		t.busy = false
		t.err = ""
		t.seq++
	}
	c.song = model.SongIdentity{}
	c.lyrics = model.LyricsRecord{}
	c.setStoryboardLocked("")
	c.videoURLs = make(map[taskKind]string)
	c.aspectRatio = model.AspectRatioLandscape
	c.resolution = model.Resolution720p
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Controller) requestCredentialReselection() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.creds.RequestCredential(ctx); err != nil {
		c.logger.Warn("Credential re-selection request failed", zap.Error(err))
	}
}

// setStoryboardLocked replaces the storyboard document and recomputes
// both derived prompts from it. Clearing the document clears the prompts
// rather than deriving fallback text from nothing. Must hold c.mu.
func (c *Controller) setStoryboardLocked(document string) {
	c.storyboard = document
	if document == "" {
		c.overallPrompt = ""
		c.customPrompt = ""
		return
	}
	derived := c.deriver.Derive(document)
	c.overallPrompt = derived.Overall
	c.customPrompt = derived.SceneOne
}

// invalidateDownstreamLocked clears the stored result and error of every
// stage downstream of the given one, per the invalidation table. Busy
// flags are left alone: an in-flight task keeps running and reports into
// the cleared slot when it completes. Must hold c.mu.
func (c *Controller) invalidateDownstreamLocked(kind taskKind) {
	for _, dep := range downstreamOf[kind] {
		t := c.tasks[dep]
		t.err = ""
		switch dep {
		case taskLyrics:
			c.lyrics = model.LyricsRecord{}
		case taskStoryboard:
			c.setStoryboardLocked("")
		case taskVideoOverall, taskVideoCustom:
			c.videoURLs[dep] = ""
		}
	}
}

func (c *Controller) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Song:               c.song,
		Lyrics:             c.lyrics,
		Storyboard:         c.storyboard,
		OverallVideoPrompt: c.overallPrompt,
		CustomVideoPrompt:  c.customPrompt,
		AspectRatio:        c.aspectRatio,
		Resolution:         c.resolution,
		LyricsTask:         model.TaskState{Busy: c.tasks[taskLyrics].busy, Error: c.tasks[taskLyrics].err},
		StoryboardTask:     model.TaskState{Busy: c.tasks[taskStoryboard].busy, Error: c.tasks[taskStoryboard].err},
		OverallVideo: model.VideoState{
			TaskState: model.TaskState{Busy: c.tasks[taskVideoOverall].busy, Error: c.tasks[taskVideoOverall].err},
			URL:       c.videoURLs[taskVideoOverall],
		},
		CustomVideo: model.VideoState{
			TaskState: model.TaskState{Busy: c.tasks[taskVideoCustom].busy, Error: c.tasks[taskVideoCustom].err},
			URL:       c.videoURLs[taskVideoCustom],
		},
	}
}

func (c *Controller) publish(snap model.Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

func videoTask(slot model.VideoSlot) taskKind {
	if slot == model.VideoSlotCustom {
		return taskVideoCustom
	}
	return taskVideoOverall
}
