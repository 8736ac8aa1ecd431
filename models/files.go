package models

import (
	"fmt"
	"time"
)

// FileStatus tracks the upload lifecycle of a CaseFile.
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusCompleted FileStatus = "completed"
	// FileStatusFailed is reserved in the schema; no code path writes it.
	FileStatusFailed FileStatus = "failed"
)

// CaptureType distinguishes the two evidence kinds a case collects.
type CaptureType string

const (
	CaptureTypeScreenshot CaptureType = "screenshot"
	CaptureTypeVideo      CaptureType = "video"
)

func ParseCaptureType(s string) (CaptureType, error) {
	switch CaptureType(s) {
	case CaptureTypeScreenshot, CaptureTypeVideo:
		return CaptureType(s), nil
	}
	return "", fmt.Errorf("unknown capture type %q", s)
}

// CaseFile is one item in the case_files table.
//
// A pending record has no guaranteed object behind its FileKey; a completed
// record always does. FileSize is authoritative only once the status is
// completed.
type CaseFile struct {
	FileID       string      `dynamodbav:"file_id" json:"fileId"`
	FileKey      string      `dynamodbav:"file_key" json:"fileKey"`
	FileName     string      `dynamodbav:"file_name" json:"fileName"`
	OriginalName string      `dynamodbav:"original_name" json:"originalName"`
	FileType     string      `dynamodbav:"file_type" json:"fileType"`
	FileSize     int64       `dynamodbav:"file_size" json:"fileSize"`
	CaseID       string      `dynamodbav:"case_id" json:"caseId"`
	CaptureType  CaptureType `dynamodbav:"capture_type" json:"captureType"`
	UploadedBy   string      `dynamodbav:"uploaded_by" json:"uploadedBy"`
	Status       FileStatus  `dynamodbav:"status" json:"status"`
	Checksum     string      `dynamodbav:"checksum,omitempty" json:"checksum,omitempty"`
	CreatedAt    time.Time   `dynamodbav:"created_at" json:"createdAt"`
	UploadedAt   time.Time   `dynamodbav:"uploaded_at,omitempty" json:"uploadedAt"`
	ExpiresAt    time.Time   `dynamodbav:"expires_at" json:"expiresAt"`
}

// Expired reports whether the upload session behind a pending record has
// passed its deadline.
func (f CaseFile) Expired(now time.Time) bool {
	return now.After(f.ExpiresAt)
}
