package chi

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeStoryNotFound          ErrorResponseCode = "story_not_found"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeVectorIndexUnavailable ErrorResponseCode = "vector_index_unavailable"
	ErrorResponseCodeGeneratorUnavailable   ErrorResponseCode = "generator_unavailable"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query     string            `json:"query" validate:"max=2048"`
	Filters   map[string]string `json:"filters,omitempty" validate:"omitempty,max=16"`
	Prefilter map[string]string `json:"prefilter,omitempty" validate:"omitempty,max=16"`
	Namespace string            `json:"namespace,omitempty" validate:"omitempty,max=64"`
	TopK      *int              `json:"top_k,omitempty" validate:"omitempty,min=1,max=100"`
	Limit     *int              `json:"limit,omitempty" validate:"omitempty,min=1,max=20"`
	Trusted   bool              `json:"trusted,omitempty"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	SearchRequest
}

// StoryItem is the wire form of a story.
type StoryItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Client      string   `json:"client,omitempty"`
	Role        string   `json:"role,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Category    string   `json:"category,omitempty"`
	SubCategory string   `json:"sub_category,omitempty"`
	Theme       string   `json:"theme,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Situation   []string `json:"situation,omitempty"`
	Task        []string `json:"task,omitempty"`
	Action      []string `json:"action,omitempty"`
	Result      []string `json:"result,omitempty"`
}

// SearchResultItem is one ranked story with its scores.
type SearchResultItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Client     string  `json:"client,omitempty"`
	Industry   string  `json:"industry,omitempty"`
	Similarity float64 `json:"similarity"`
	Keyword    float64 `json:"keyword"`
	Score      float64 `json:"score"`
}

// ActiveFilter is a metadata filter that removed every candidate.
type ActiveFilter struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Negated bool   `json:"negated,omitempty"`
}

// SearchResponse is the body of a successful POST /v1/search.
type SearchResponse struct {
	Results       []SearchResultItem `json:"results"`
	Confidence    string             `json:"confidence"`
	TopScore      float64            `json:"top_score"`
	Fallback      bool               `json:"fallback"`
	OffDomain     string             `json:"off_domain,omitempty"`
	RelaxedCount  int                `json:"relaxed_count,omitempty"`
	ActiveFilters []ActiveFilter     `json:"active_filters,omitempty"`
}

// AskResponse is the body of a successful POST /v1/ask.
type AskResponse struct {
	Answer        string         `json:"answer"`
	Sources       []StoryItem    `json:"sources"`
	Confidence    string         `json:"confidence"`
	TopScore      float64        `json:"top_score"`
	Suggestions   []string       `json:"suggestions,omitempty"`
	OffDomain     string         `json:"off_domain,omitempty"`
	RelaxedCount  int            `json:"relaxed_count,omitempty"`
	ActiveFilters []ActiveFilter `json:"active_filters,omitempty"`
	Fallback      bool           `json:"fallback"`
	Templated     bool           `json:"templated"`
	FollowUp      bool           `json:"follow_up"`
	SessionID     string         `json:"session_id"`
}

// StoryListResponse is the body of GET /v1/stories.
type StoryListResponse struct {
	Items []StoryItem `json:"items"`
	Count int         `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Stories int               `json:"stories"`
	Version string            `json:"version"`
}

// ListStoriesParams are the query parameters of GET /v1/stories.
type ListStoriesParams struct {
	Industry    *string `form:"industry,omitempty" json:"industry,omitempty"`
	Category    *string `form:"category,omitempty" json:"category,omitempty"`
	SubCategory *string `form:"sub_category,omitempty" json:"sub_category,omitempty"`
	Client      *string `form:"client,omitempty" json:"client,omitempty"`
	Role        *string `form:"role,omitempty" json:"role,omitempty"`
	Theme       *string `form:"theme,omitempty" json:"theme,omitempty"`
	Tag         *string `form:"tag,omitempty" json:"tag,omitempty"`
	Limit       *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// filterMap collects the set filter parameters keyed by filter key.
func (p ListStoriesParams) filterMap() map[string]string {
	m := make(map[string]string)
	for key, v := range map[string]*string{
		"industry":     p.Industry,
		"category":     p.Category,
		"sub_category": p.SubCategory,
		"client":       p.Client,
		"role":         p.Role,
		"theme":        p.Theme,
		"tag":          p.Tag,
	} {
		if v != nil && *v != "" {
			m[key] = *v
		}
	}
	return m
}
