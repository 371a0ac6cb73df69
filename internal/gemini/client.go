package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
	"storyboard-server/internal/model"
	"storyboard-server/internal/prompts"
)

// ErrGenerationFailed - the upstream generative API call failed.
var ErrGenerationFailed = errors.New("generation request failed")

// ErrAuth - the upstream rejected the API credential. Matched on the
// known failure signature so callers can trigger credential re-selection.
var ErrAuth = errors.New("api credential rejected")

// ErrVideoTimeout - the video operation did not complete within the
// configured maximum wait.
var ErrVideoTimeout = errors.New("video generation timed out")

// authFailureSignature is the message fragment the API returns for an
// invalid or expired key.
const authFailureSignature = "Requested entity was not found."

// Generation parameters of the storyboard stage, fixed per the original
// service behavior.
const (
	storyboardTemperature     = 0.9
	storyboardTopP            = 0.95
	storyboardTopK            = 64
	storyboardMaxOutputTokens = 2048
	storyboardThinkingBudget  = 512
)

// Client talks to the generativelanguage REST API. It owns no state
// across calls beyond its HTTP client.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	cfg        config.GeminiConfig
	storyboard model.StoryboardOptions
}

// NewClient creates a new API client.
func NewClient(logger *zap.Logger, cfg config.GeminiConfig, storyboard model.StoryboardOptions) *Client {
	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cfg:        cfg,
		storyboard: storyboard,
	}
}

// LookupLyrics finds existing lyrics for the song using Google Search
// grounding and returns them with the grounding source URLs.
func (c *Client) LookupLyrics(ctx context.Context, title, artist string) (string, []string, error) {
	req := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompts.LyricsLookup(title, artist)}}}},
		Tools:    []tool{{GoogleSearch: &googleSearch{}}},
	}

	resp, err := c.generateContent(ctx, c.cfg.LyricsModel, req)
	if err != nil {
		return "", nil, err
	}

	var sourceURLs []string
	if gm := resp.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				sourceURLs = append(sourceURLs, chunk.Web.URI)
			}
		}
	}

	return candidateText(resp), sourceURLs, nil
}

// GenerateStoryboard produces the storyboard document for the song. The
// visual style, target length, aspect ratio and scene range come from
// the fixed storyboard options.
func (c *Client) GenerateStoryboard(ctx context.Context, song model.SongIdentity, lyrics string) (string, error) {
	temperature := storyboardTemperature
	topP := storyboardTopP
	topK := storyboardTopK

	req := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompts.Storyboard(song, lyrics, c.storyboard)}}}},
		GenerationConfig: &generationConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			TopK:            &topK,
			MaxOutputTokens: storyboardMaxOutputTokens,
			ThinkingConfig:  &thinkingConfig{ThinkingBudget: storyboardThinkingBudget},
		},
	}

	resp, err := c.generateContent(ctx, c.cfg.StoryboardModel, req)
	if err != nil {
		return "", err
	}
	return candidateText(resp), nil
}

// GenerateVideo submits a long-running video generation request and
// polls its operation until it completes, fails, or the configured
// maximum wait elapses. The returned locator has the API key appended so
// the asset can be fetched directly.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, videoCfg model.VideoConfig) (string, error) {
	log := c.logger.With(
		zap.String("model", c.cfg.VideoModel),
		zap.String("aspect_ratio", string(videoCfg.AspectRatio)),
		zap.String("resolution", string(videoCfg.Resolution)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.VideoMaxWait)
	defer cancel()

	startTime := time.Now()
	op, err := c.startVideoOperation(ctx, prompt, videoCfg)
	if err != nil {
		return "", c.finishPoll(log, startTime, err)
	}
	if op.Name == "" {
		videoGenerationDuration.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "error"}).Observe(time.Since(startTime).Seconds())
		return "", fmt.Errorf("%w: no operation handle in response", ErrGenerationFailed)
	}
	log.Info("Video generation initiated, polling for completion", zap.String("operation", op.Name))

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", c.finishPoll(log, startTime, ctx.Err())
		case <-time.After(c.cfg.VideoPollInterval):
		}

		videoPollIterations.With(prometheus.Labels{"model": c.cfg.VideoModel}).Inc()
		op, err = c.getVideoOperation(ctx, op.Name)
		if err != nil {
			return "", c.finishPoll(log, startTime, err)
		}
		log.Debug("Video operation polled", zap.Bool("done", op.Done))
	}

	if op.Error != nil {
		videoGenerationDuration.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "error"}).Observe(time.Since(startTime).Seconds())
		return "", c.classifyFailure(op.Error.Message)
	}

	uri := ""
	if op.Response != nil && op.Response.GenerateVideoResponse != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 && samples[0].Video != nil {
			uri = samples[0].Video.URI
		}
	}
	if uri == "" {
		videoGenerationDuration.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "error"}).Observe(time.Since(startTime).Seconds())
		return "", fmt.Errorf("%w: operation completed but no download link was found", ErrGenerationFailed)
	}

	videoGenerationDuration.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "success"}).Observe(time.Since(startTime).Seconds())
	log.Info("Video generation successful", zap.Duration("duration", time.Since(startTime)))

	// The download link requires the API key as a query parameter.
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + c.cfg.APIKey, nil
}

// finishPoll records the outcome metric for a failed video call and maps
// the error onto the polling taxonomy. A deadline hit, whether observed
// between polls or mid-request, means the operation exceeded the maximum
// wait; cancellation passes through unchanged.
func (c *Client) finishPoll(log *zap.Logger, startTime time.Time, err error) error {
	status := "error"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = "timeout"
	}
	videoGenerationDuration.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": status}).Observe(time.Since(startTime).Seconds())

	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Video operation exceeded maximum wait", zap.Duration("max_wait", c.cfg.VideoMaxWait))
		return fmt.Errorf("%w after %v", ErrVideoTimeout, c.cfg.VideoMaxWait)
	}
	return err
}

// generateContent issues one generateContent call and validates the
// response shape.
func (c *Client) generateContent(ctx context.Context, modelName string, req generateContentRequest) (*generateContentResponse, error) {
	startTime := time.Now()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", strings.TrimSuffix(c.cfg.BaseURL, "/"), modelName, c.cfg.APIKey)
	body, err := c.post(ctx, url, req)

	duration := time.Since(startTime)
	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error"}).Inc()
		return nil, err
	}

	var resp generateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error"}).Inc()
		return nil, fmt.Errorf("%w: decoding response: %v", ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "error_empty_response"}).Inc()
		return nil, fmt.Errorf("%w: no content in response", ErrGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": modelName, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": modelName}).Observe(duration.Seconds())
	c.logger.Debug("Generative API call succeeded",
		zap.String("model", modelName),
		zap.Duration("duration", duration),
	)
	return &resp, nil
}

// startVideoOperation submits the long-running video request and returns
// its operation handle.
func (c *Client) startVideoOperation(ctx context.Context, prompt string, videoCfg model.VideoConfig) (*videoOperation, error) {
	req := videoGenerationRequest{
		Instances: []videoInstance{{Prompt: prompt}},
		Parameters: videoParameters{
			SampleCount: 1,
			AspectRatio: string(videoCfg.AspectRatio),
			Resolution:  string(videoCfg.Resolution),
		},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning?key=%s", strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.VideoModel, c.cfg.APIKey)
	body, err := c.post(ctx, url, req)
	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "error"}).Inc()
		return nil, err
	}

	var op videoOperation
	if err := json.Unmarshal(body, &op); err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "error"}).Inc()
		return nil, fmt.Errorf("%w: decoding operation: %v", ErrGenerationFailed, err)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.cfg.VideoModel, "status": "success"}).Inc()
	return &op, nil
}

// getVideoOperation polls the status of a long-running operation.
func (c *Client) getVideoOperation(ctx context.Context, name string) (*videoOperation, error) {
	url := fmt.Sprintf("%s/v1beta/%s?key=%s", strings.TrimSuffix(c.cfg.BaseURL, "/"), name, c.cfg.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrGenerationFailed, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A deadline or cancellation landing mid-request must stay
		// matchable with errors.Is, not be folded into the upstream wrap.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamError(resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGenerationFailed, readErr)
	}

	var op videoOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("%w: decoding operation: %v", ErrGenerationFailed, err)
	}
	return &op, nil
}

// post issues one JSON POST and returns the raw response body.
func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshalling request: %v", ErrGenerationFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamError(resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGenerationFailed, readErr)
	}
	return body, nil
}

// upstreamError converts a non-OK API response into a sentinel-wrapped
// error, detecting the invalid-credential signature.
func (c *Client) upstreamError(statusCode int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden || strings.Contains(detail, authFailureSignature) {
		c.logger.Warn("Generative API rejected the credential", zap.Int("status_code", statusCode))
		return fmt.Errorf("%w: API returned status %d: %s", ErrAuth, statusCode, detail)
	}
	return fmt.Errorf("%w: API returned status %d: %s", ErrGenerationFailed, statusCode, detail)
}

// classifyFailure maps a completed operation's error message onto the
// error taxonomy.
func (c *Client) classifyFailure(message string) error {
	if strings.Contains(message, authFailureSignature) {
		return fmt.Errorf("%w: %s", ErrAuth, message)
	}
	return fmt.Errorf("%w: %s", ErrGenerationFailed, message)
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *generateContentResponse) string {
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
