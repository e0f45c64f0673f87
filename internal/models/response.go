package models

type BoardsResponse struct {
	Boards          []Board `json:"boards"`
	SelectedBoardID string  `json:"selected_board_id"`
	SyncError       string  `json:"sync_error,omitempty"`
}

type BoardResponse struct {
	Board           Board  `json:"board"`
	SelectedBoardID string `json:"selected_board_id"`
}

type TagsResponse struct {
	BoardID string    `json:"board_id"`
	Tags    []string  `json:"tags"`
	Source  TagSource `json:"source,omitempty"`
}

type UploadResponse struct {
	BatchID string            `json:"batch_id"`
	BoardID string            `json:"board_id"`
	Files   []ImageRef        `json:"files"`
	Status  string            `json:"status"`
	Errors  []UploadErrorInfo `json:"errors,omitempty"`
}

type UploadsResponse struct {
	Tasks []UploadTask `json:"tasks"`
}

type CancelResponse struct {
	Cancelled int `json:"cancelled"`
}

type QuotaResponse struct {
	PlanTier     string  `json:"plan_tier"`
	UsedBytes    int64   `json:"used_bytes"`
	TotalBytes   int64   `json:"total_bytes"`
	ImageCount   int     `json:"image_count"`
	MaxImages    int     `json:"max_images"`
	BoardCount   int     `json:"board_count"`
	MaxBoards    int     `json:"max_boards"`
	UsagePercent float64 `json:"usage_percent"`
	IsNearLimit  bool    `json:"is_near_limit"`
	IsOverLimit  bool    `json:"is_over_limit"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	OpenSessions    int    `json:"open_sessions"`
	FailingSessions int    `json:"failing_sessions"`
}
