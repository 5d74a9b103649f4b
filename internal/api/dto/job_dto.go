package dto

type ListJobsRequest struct {
	JobType  string `form:"type"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Status     string            `json:"status"`
	Progress   int               `json:"progress"`
	Input      string            `json:"input"`
	Output     map[string]string `json:"output"`
	Error      string            `json:"error,omitempty"`
	YoutubeURL string            `json:"youtube_url,omitempty"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}
