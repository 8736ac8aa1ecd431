package models

// CreateUploadSessionRequest asks for a presigned upload URL and a pending
// file record. FileSize is the declared size; zero means undeclared.
type CreateUploadSessionRequest struct {
	CaseID      string `json:"caseId" binding:"required"`
	CaptureType string `json:"captureType" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	FileType    string `json:"fileType" binding:"required"`
	FileSize    int64  `json:"fileSize"`
}

// ConfirmUploadRequest reports that the client finished uploading to the
// presigned URL. ActualFileSize is the observed size, which may differ from
// the declared one.
type ConfirmUploadRequest struct {
	FileID         string `json:"fileId" binding:"required"`
	FileKey        string `json:"fileKey" binding:"required"`
	ActualFileSize int64  `json:"actualFileSize" binding:"required"`
	Checksum       string `json:"checksum"`
}

// DeleteFileRequest removes a completed file by its storage key.
type DeleteFileRequest struct {
	FileKey string `json:"fileKey" binding:"required"`
}

// ListCaseFilesQuery carries the query parameters of the listing endpoint.
type ListCaseFilesQuery struct {
	CaptureType string `form:"captureType"`
	Page        int    `form:"page,default=1"`
	Limit       int    `form:"limit,default=20"`
	SortBy      string `form:"sortBy,default=createdAt"`
	SortOrder   string `form:"sortOrder,default=desc"`
}

// CreateCaseRequest opens a new case.
type CreateCaseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// UploadStatsQuery scopes the statistics endpoint.
type UploadStatsQuery struct {
	CaseID   string `form:"caseId"`
	Days     int    `form:"days,default=7"`
	Detailed bool   `form:"detailed"`
}
