package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/gemini"
	"storyboard-server/internal/model"
	"storyboard-server/internal/prompts"
	"storyboard-server/internal/session"
	"storyboard-server/internal/session/mocks"
)

const testStoryboard = "## Part 1: Song Analysis\n" +
	"*   **Core Theme(s):** (Loss, Redemption)\n" +
	"## Part 3: Scene-by-Scene Breakdown\n" +
	"**Scene 1**\n" +
	"**Visual Direction (Remington Style): A lone rider crosses a moonlit plain.\n" +
	"**Scene 2**\n" +
	"**Visual Direction (Remington Style): Dawn breaks over the canyon.\n"

type fixture struct {
	ctrl   *session.Controller
	client *mocks.MockGenerationClient
	gate   *mocks.MockCredentialGate
	snaps  chan model.Snapshot
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		client: mocks.NewMockGenerationClient(t),
		gate:   mocks.NewMockCredentialGate(t),
		snaps:  make(chan model.Snapshot, 64),
	}
	f.ctrl = session.NewController(
		zap.NewNop(),
		f.client,
		f.gate,
		prompts.NewPatternDeriver(),
		func(snap model.Snapshot) { f.snaps <- snap },
	)
	t.Cleanup(f.ctrl.Close)
	return f
}

// waitFor drains published snapshots until one satisfies the predicate.
func (f *fixture) waitFor(t *testing.T, pred func(model.Snapshot) bool) model.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-f.snaps:
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for expected snapshot")
			return model.Snapshot{}
		}
	}
}

func (f *fixture) seedLyrics(t *testing.T, text string) {
	t.Helper()
	f.ctrl.SetLyrics(text)
	f.waitFor(t, func(s model.Snapshot) bool { return s.Lyrics.Text == text })
}

func (f *fixture) seedStoryboard(t *testing.T) {
	t.Helper()
	f.seedLyrics(t, "some lyrics")
	f.client.On("GenerateStoryboard", mock.Anything, mock.Anything, "some lyrics").
		Return(testStoryboard, nil).Once()
	require.NoError(t, f.ctrl.GenerateStoryboard())
	f.waitFor(t, func(s model.Snapshot) bool {
		return !s.StoryboardTask.Busy && s.Storyboard == testStoryboard
	})
}

func TestLookupLyrics_ValidationRejectsBlankIdentity(t *testing.T) {
	f := newFixture(t)

	f.ctrl.UpdateIdentity(model.SongIdentity{Title: "  ", Artist: "Marty Robbins"})
	err := f.ctrl.LookupLyrics()

	assert.ErrorIs(t, err, session.ErrValidation)
	f.client.AssertNotCalled(t, "LookupLyrics", mock.Anything, mock.Anything, mock.Anything)
}

func TestLookupLyrics_Success(t *testing.T) {
	f := newFixture(t)
	f.ctrl.UpdateIdentity(model.SongIdentity{Title: "El Paso", Artist: "Marty Robbins"})
	f.client.On("LookupLyrics", mock.Anything, "El Paso", "Marty Robbins").
		Return("Out in the West Texas town of El Paso", []string{"https://example.com/lyrics"}, nil).Once()

	require.NoError(t, f.ctrl.LookupLyrics())

	snap := f.waitFor(t, func(s model.Snapshot) bool { return !s.LyricsTask.Busy && s.Lyrics.Text != "" })
	assert.Equal(t, "Out in the West Texas town of El Paso", snap.Lyrics.Text)
	assert.Equal(t, []string{"https://example.com/lyrics"}, snap.Lyrics.SourceURLs)
	assert.Empty(t, snap.LyricsTask.Error)
	f.client.AssertExpectations(t)
}

func TestLookupLyrics_FailureClearsLyricsAndReportsError(t *testing.T) {
	f := newFixture(t)
	f.ctrl.UpdateIdentity(model.SongIdentity{Title: "El Paso", Artist: "Marty Robbins"})
	f.seedLyrics(t, "stale lyrics")
	f.client.On("LookupLyrics", mock.Anything, "El Paso", "Marty Robbins").
		Return("", nil, errors.New("upstream unavailable")).Once()

	require.NoError(t, f.ctrl.LookupLyrics())

	snap := f.waitFor(t, func(s model.Snapshot) bool { return !s.LyricsTask.Busy && s.LyricsTask.Error != "" })
	assert.Empty(t, snap.Lyrics.Text)
	assert.Contains(t, snap.LyricsTask.Error, "Failed to look up lyrics")
	assert.Contains(t, snap.LyricsTask.Error, "upstream unavailable")
}

func TestLookupLyrics_InvalidatesDownstreamOnStart(t *testing.T) {
	f := newFixture(t)
	f.seedStoryboard(t)
	f.ctrl.UpdateIdentity(model.SongIdentity{Title: "El Paso", Artist: "Marty Robbins"})
	block := make(chan struct{})
	f.client.On("LookupLyrics", mock.Anything, "El Paso", "Marty Robbins").
		Run(func(mock.Arguments) { <-block }).
		Return("new lyrics", nil, nil).Once()
	defer close(block)

	require.NoError(t, f.ctrl.LookupLyrics())

	// The snapshot at start already shows the storyboard and derived
	// prompts gone while the lookup is still in flight.
	snap := f.waitFor(t, func(s model.Snapshot) bool { return s.LyricsTask.Busy })
	assert.Empty(t, snap.Storyboard)
	assert.Empty(t, snap.OverallVideoPrompt)
	assert.Empty(t, snap.CustomVideoPrompt)
}

func TestLookupLyrics_RejectsConcurrentStart(t *testing.T) {
	f := newFixture(t)
	f.ctrl.UpdateIdentity(model.SongIdentity{Title: "El Paso", Artist: "Marty Robbins"})
	block := make(chan struct{})
	f.client.On("LookupLyrics", mock.Anything, "El Paso", "Marty Robbins").
		Run(func(mock.Arguments) { <-block }).
		Return("lyrics", nil, nil).Once()

	require.NoError(t, f.ctrl.LookupLyrics())
	f.waitFor(t, func(s model.Snapshot) bool { return s.LyricsTask.Busy })

	err := f.ctrl.LookupLyrics()
	assert.ErrorIs(t, err, session.ErrTaskBusy)
	close(block)
}

func TestGenerateStoryboard_RequiresLyrics(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.GenerateStoryboard()

	assert.ErrorIs(t, err, session.ErrValidation)
	f.client.AssertNotCalled(t, "GenerateStoryboard", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateStoryboard_DerivesVideoPrompts(t *testing.T) {
	f := newFixture(t)
	f.seedStoryboard(t)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, "Create a music video reflecting the themes: Loss, Redemption.", snap.OverallVideoPrompt)
	assert.Equal(t, "A lone rider crosses a moonlit plain.", snap.CustomVideoPrompt)
}

func TestGenerateStoryboard_FailureKeepsDocumentCleared(t *testing.T) {
	f := newFixture(t)
	f.seedStoryboard(t)
	f.client.On("GenerateStoryboard", mock.Anything, mock.Anything, "some lyrics").
		Return("", errors.New("model overloaded")).Once()

	require.NoError(t, f.ctrl.GenerateStoryboard())

	snap := f.waitFor(t, func(s model.Snapshot) bool { return !s.StoryboardTask.Busy && s.StoryboardTask.Error != "" })
	assert.Empty(t, snap.Storyboard)
	assert.Contains(t, snap.StoryboardTask.Error, "Failed to generate storyboard")
	assert.Contains(t, snap.StoryboardTask.Error, "model overloaded")
}

func TestGenerateVideo_SlotsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.gate.On("HasCredential", mock.Anything).Return(true)
	releaseOverall := make(chan struct{})
	releaseCustom := make(chan struct{})
	f.client.On("GenerateVideo", mock.Anything, "overall prompt", mock.Anything).
		Run(func(mock.Arguments) { <-releaseOverall }).
		Return("https://videos.example.com/overall.mp4", nil).Once()
	f.client.On("GenerateVideo", mock.Anything, "custom prompt", mock.Anything).
		Run(func(mock.Arguments) { <-releaseCustom }).
		Return("https://videos.example.com/custom.mp4", nil).Once()

	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "overall prompt"))
	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotCustom, "custom prompt"))
	f.waitFor(t, func(s model.Snapshot) bool { return s.OverallVideo.Busy && s.CustomVideo.Busy })

	// Completing one slot while the other is still in flight must not
	// touch the other's state.
	close(releaseOverall)
	snap := f.waitFor(t, func(s model.Snapshot) bool { return s.OverallVideo.URL != "" })
	assert.Equal(t, "https://videos.example.com/overall.mp4", snap.OverallVideo.URL)
	assert.False(t, snap.OverallVideo.Busy)
	assert.True(t, snap.CustomVideo.Busy)
	assert.Empty(t, snap.CustomVideo.URL)

	close(releaseCustom)
	snap = f.waitFor(t, func(s model.Snapshot) bool { return s.CustomVideo.URL != "" })
	assert.Equal(t, "https://videos.example.com/overall.mp4", snap.OverallVideo.URL)
	assert.Equal(t, "https://videos.example.com/custom.mp4", snap.CustomVideo.URL)
	assert.False(t, snap.CustomVideo.Busy)
}

func TestGenerateVideo_Validation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.ctrl.GenerateVideo(model.VideoSlot("sideways"), "a prompt"), session.ErrValidation)
	assert.ErrorIs(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "   "), session.ErrValidation)
	f.client.AssertNotCalled(t, "GenerateVideo", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateVideo_RelaunchReplacesSlotResult(t *testing.T) {
	f := newFixture(t)
	f.gate.On("HasCredential", mock.Anything).Return(true)
	f.client.On("GenerateVideo", mock.Anything, "first", mock.Anything).
		Return("https://videos.example.com/first.mp4", nil).Once()
	f.client.On("GenerateVideo", mock.Anything, "second", mock.Anything).
		Return("https://videos.example.com/second.mp4", nil).Once()

	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "first"))
	f.waitFor(t, func(s model.Snapshot) bool { return s.OverallVideo.URL != "" })

	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "second"))
	started := f.waitFor(t, func(s model.Snapshot) bool { return s.OverallVideo.Busy })
	assert.Empty(t, started.OverallVideo.URL)

	snap := f.waitFor(t, func(s model.Snapshot) bool { return !s.OverallVideo.Busy && s.OverallVideo.URL != "" })
	assert.Equal(t, "https://videos.example.com/second.mp4", snap.OverallVideo.URL)
}

func TestGenerateVideo_UsesCurrentVideoConfig(t *testing.T) {
	f := newFixture(t)
	f.gate.On("HasCredential", mock.Anything).Return(true)
	require.NoError(t, f.ctrl.SetAspectRatio(model.AspectRatioPortrait))
	require.NoError(t, f.ctrl.SetResolution(model.Resolution1080p))
	f.client.On("GenerateVideo", mock.Anything, "a prompt", model.VideoConfig{
		AspectRatio: model.AspectRatioPortrait,
		Resolution:  model.Resolution1080p,
	}).Return("https://videos.example.com/v.mp4", nil).Once()

	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "a prompt"))

	f.waitFor(t, func(s model.Snapshot) bool { return s.OverallVideo.URL != "" })
	f.client.AssertExpectations(t)
}

func TestGenerateVideo_MissingCredentialRequestsSelection(t *testing.T) {
	f := newFixture(t)
	f.gate.On("HasCredential", mock.Anything).Return(false)
	f.gate.On("RequestCredential", mock.Anything).Return(nil)
	f.client.On("GenerateVideo", mock.Anything, "a prompt", mock.Anything).
		Return("https://videos.example.com/v.mp4", nil).Once()

	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "a prompt"))

	f.waitFor(t, func(s model.Snapshot) bool { return s.OverallVideo.URL != "" })
	f.gate.AssertCalled(t, "RequestCredential", mock.Anything)
}

func TestGenerateVideo_AuthFailureTriggersReselection(t *testing.T) {
	f := newFixture(t)
	reselected := make(chan struct{})
	f.gate.On("HasCredential", mock.Anything).Return(true)
	f.gate.On("RequestCredential", mock.Anything).
		Run(func(mock.Arguments) { close(reselected) }).
		Return(nil).Once()
	f.client.On("GenerateVideo", mock.Anything, "a prompt", mock.Anything).
		Return("", gemini.ErrAuth).Once()

	require.NoError(t, f.ctrl.GenerateVideo(model.VideoSlotOverall, "a prompt"))

	snap := f.waitFor(t, func(s model.Snapshot) bool { return !s.OverallVideo.Busy && s.OverallVideo.Error != "" })
	assert.Contains(t, snap.OverallVideo.Error, "Failed to generate video")
	select {
	case <-reselected:
	case <-time.After(2 * time.Second):
		t.Fatal("credential re-selection was not requested")
	}
}

func TestSetLyrics_DropsSourcesAndInvalidatesDownstream(t *testing.T) {
	f := newFixture(t)
	f.seedStoryboard(t)

	f.ctrl.SetLyrics("hand edited lyrics")

	snap := f.waitFor(t, func(s model.Snapshot) bool { return s.Lyrics.Text == "hand edited lyrics" })
	assert.Empty(t, snap.Lyrics.SourceURLs)
	assert.Empty(t, snap.Storyboard)
	assert.Empty(t, snap.OverallVideoPrompt)
	assert.Empty(t, snap.CustomVideoPrompt)
}

func TestSetAspectRatio_RejectsUnknownValue(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.SetAspectRatio(model.AspectRatio("4:3"))

	assert.ErrorIs(t, err, session.ErrValidation)
	assert.Equal(t, model.AspectRatioLandscape, f.ctrl.Snapshot().AspectRatio)
}

func TestSetAspectRatio_SameValueTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.SetAspectRatio(model.AspectRatioPortrait))
	first := f.ctrl.Snapshot()

	require.NoError(t, f.ctrl.SetAspectRatio(model.AspectRatioPortrait))

	assert.Equal(t, first, f.ctrl.Snapshot())
	assert.Equal(t, model.AspectRatioPortrait, first.AspectRatio)
}

func TestReset_RestoresInitialState(t *testing.T) {
	f := newFixture(t)
	f.seedStoryboard(t)
	f.ctrl.UpdateIdentity(model.SongIdentity{Title: "El Paso", Artist: "Marty Robbins"})
	require.NoError(t, f.ctrl.SetAspectRatio(model.AspectRatioPortrait))

	f.ctrl.Reset()

	snap := f.waitFor(t, func(s model.Snapshot) bool { return s.Song.Title == "" && s.Storyboard == "" })
	assert.Equal(t, model.Snapshot{
		AspectRatio: model.AspectRatioLandscape,
		Resolution:  model.Resolution720p,
	}, snap)
}
