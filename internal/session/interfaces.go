package session

import (
	"context"

	"storyboard-server/internal/model"
)

// GenerationClient is the narrow contract the controller needs from the
// external generative service. The client owns no state across calls
// beyond one polling handle per in-flight video operation.
type GenerationClient interface {
	// LookupLyrics finds existing lyrics for the song and returns them
	// with the grounding source URLs, if any.
	LookupLyrics(ctx context.Context, title, artist string) (string, []string, error)
	// GenerateStoryboard produces the storyboard document for the song.
	GenerateStoryboard(ctx context.Context, song model.SongIdentity, lyrics string) (string, error)
	// GenerateVideo runs a long-running video generation to completion
	// and returns the asset locator.
	GenerateVideo(ctx context.Context, prompt string, cfg model.VideoConfig) (string, error)
}

// CredentialGate is the host-provided credential-selection capability.
// The controller uses it reactively when the generation client reports
// an authentication failure signature.
type CredentialGate interface {
	// HasCredential reports whether a usable API credential is selected.
	HasCredential(ctx context.Context) bool
	// RequestCredential asks the hosting environment to (re)select the
	// credential. Best-effort: the caller does not retry on failure.
	RequestCredential(ctx context.Context) error
}
