package realtime

import "moodboard-backend/internal/models"

func UploadStartedPayload(boardID string, fileCount int) map[string]any {
	return map[string]any{
		"board_id":   boardID,
		"status":     "uploading",
		"file_count": fileCount,
	}
}

func UploadProgressPayload(task models.UploadTask) map[string]any {
	p := map[string]any{
		"batch_id":  task.BatchID,
		"board_id":  task.BoardID,
		"task_id":   task.ID,
		"file_name": task.FileName,
		"status":    string(task.Status),
		"progress":  task.Progress,
	}
	if task.Error != "" {
		p["error"] = task.Error
	}
	return p
}

func FirstImagePayload(batchID, boardID string, image models.ImageRef) map[string]any {
	return map[string]any{
		"batch_id":     batchID,
		"board_id":     boardID,
		"url":          image.URL,
		"display_name": image.DisplayName,
	}
}

func UploadCompletedPayload(result models.BatchResult) map[string]any {
	return map[string]any{
		"batch_id":    result.BatchID,
		"board_id":    result.BoardID,
		"status":      "completed",
		"file_count":  len(result.Uploaded),
		"error_count": len(result.Errors),
	}
}

func UploadCancelledPayload(cancelled int) map[string]any {
	return map[string]any{
		"status":    "cancelled",
		"cancelled": cancelled,
	}
}

func PersistFailedPayload(errMsg string) map[string]any {
	return map[string]any{
		"status": "failed",
		"error":  errMsg,
	}
}

func TagsChangedPayload(ev models.TagsChanged) map[string]any {
	return map[string]any{
		"board_id": ev.BoardID,
		"vibes":    ev.Tags,
	}
}
