package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// SearchResponse represents the result of a resolved search
type SearchResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"`
	AudioURL string `json:"audio_url"`
	LyricURL string `json:"lyric_url"`
	ImageURL string `json:"image_url"`
}

// HomeResponse represents the liveness/version descriptor
type HomeResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Endpoints map[string]string `json:"endpoints"`
}
