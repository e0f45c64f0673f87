package models

type CreateBoardRequest struct {
	Name string    `json:"name" binding:"required"`
	Kind BoardKind `json:"kind,omitempty" example:"custom"`
}

type RenameBoardRequest struct {
	Name string `json:"name" binding:"required"`
}

type TagsRequest struct {
	Tags   []string  `json:"tags"`
	Source TagSource `json:"source,omitempty" example:"manual"`
}

type SelectBoardRequest struct {
	BoardID string `json:"board_id" binding:"required"`
}

// UpdateImageRequest leaves a field untouched when it is omitted.
type UpdateImageRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
