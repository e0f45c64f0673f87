package models

type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusValidating UploadStatus = "validating"
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusError      UploadStatus = "error"
)

// Terminal reports whether no further transition is possible.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusError
}

// UploadFile is one candidate image of a batch.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type UploadTask struct {
	ID            string       `json:"id"`
	BatchID       string       `json:"batch_id"`
	FileName      string       `json:"file_name"`
	BoardID       string       `json:"board_id"`
	Status        UploadStatus `json:"status"`
	Progress      int          `json:"progress"`
	Error         string       `json:"error,omitempty"`
	QuotaDeclined bool         `json:"quota_declined,omitempty"`
}

// Upload stages reported in UploadErrorInfo.Stage.
const (
	StageValidate = "validate"
	StageQuota    = "quota"
	StageUpload   = "upload"
	StageApply    = "apply"
)

type UploadErrorInfo struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
	Stage    string `json:"stage"`
}

type BatchResult struct {
	BatchID  string            `json:"batch_id"`
	BoardID  string            `json:"board_id"`
	Uploaded []ImageRef        `json:"uploaded"`
	Errors   []UploadErrorInfo `json:"errors,omitempty"`
}
