package models

import "time"

// Case is one item in the cases table. The four aggregate fields are
// denormalized from the case's completed files and owned exclusively by the
// aggregate recomputation service; nothing else writes them.
type Case struct {
	CaseID      string `dynamodbav:"case_id" json:"caseId"`
	Title       string `dynamodbav:"title" json:"title"`
	Description string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	CreatedBy   string `dynamodbav:"created_by" json:"createdBy"`

	TotalScreenshots int   `dynamodbav:"total_screenshots" json:"totalScreenshots"`
	TotalVideos      int   `dynamodbav:"total_videos" json:"totalVideos"`
	TotalFileSize    int64 `dynamodbav:"total_file_size" json:"totalFileSize"`

	LastActivity time.Time `dynamodbav:"last_activity" json:"lastActivity"`
	CreatedAt    time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// CaseAggregates is the rebuilt snapshot written back onto a Case record.
type CaseAggregates struct {
	TotalScreenshots int
	TotalVideos      int
	TotalFileSize    int64
	LastActivity     time.Time
}
