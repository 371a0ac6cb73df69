package gemini

// Wire types for the generativelanguage REST API, limited to the fields
// this service consumes.

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	Tools            []tool            `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch *googleSearch `json:"google_search,omitempty"`
}

type googleSearch struct{}

type generationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"topP,omitempty"`
	TopK            *int            `json:"topK,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content           content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *webSource `json:"web,omitempty"`
}

type webSource struct {
	URI string `json:"uri"`
}

type videoGenerationRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

type videoParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
}

type videoOperation struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *operationError  `json:"error,omitempty"`
	Response *operationResult `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResult struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples"`
}

type generatedSample struct {
	Video *videoReference `json:"video,omitempty"`
}

type videoReference struct {
	URI string `json:"uri"`
}
