package models

import "time"

// Envelope is the JSON shape every endpoint returns: a success flag plus
// either a payload or an error message.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// UploadSessionResponse hands the client everything it needs to upload
// directly to storage and confirm afterwards.
type UploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
	FileID    string `json:"fileId"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// ConfirmUploadResponse acknowledges a completed upload.
type ConfirmUploadResponse struct {
	FileID  string `json:"fileId"`
	FileKey string `json:"fileKey"`
	Message string `json:"message"`
}

// ListedFile is one row of a case file listing. DownloadURL is freshly
// signed per request and omitted when signing failed.
type ListedFile struct {
	CaseFile
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Pagination describes the slice of results returned.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// FileListSummary carries the per-type counts of the full (unpaginated)
// result set.
type FileListSummary struct {
	TotalScreenshots int   `json:"totalScreenshots"`
	TotalVideos      int   `json:"totalVideos"`
	TotalFileSize    int64 `json:"totalFileSize"`
}

// FileListResponse is the listing endpoint payload.
type FileListResponse struct {
	Files      []ListedFile    `json:"files"`
	Pagination Pagination      `json:"pagination"`
	Summary    FileListSummary `json:"summary"`
}

// DownloadURLResponse is the single-file download endpoint payload.
type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

// DailyUploadStats is one day of the detailed statistics breakdown.
type DailyUploadStats struct {
	Date        string `json:"date"`
	Screenshots int    `json:"screenshots"`
	Videos      int    `json:"videos"`
	TotalSize   int64  `json:"totalSize"`
}

// UploadStatsResponse is the statistics endpoint payload.
type UploadStatsResponse struct {
	TotalFiles       int                `json:"totalFiles"`
	TotalScreenshots int                `json:"totalScreenshots"`
	TotalVideos      int                `json:"totalVideos"`
	TotalFileSize    int64              `json:"totalFileSize"`
	Since            time.Time          `json:"since"`
	RecentUploads    []CaseFile         `json:"recentUploads"`
	Daily            []DailyUploadStats `json:"daily,omitempty"`
}

// ReapResponse reports how many expired sessions were removed.
type ReapResponse struct {
	Reaped int `json:"reaped"`
}
