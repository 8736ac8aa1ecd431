package models

// S3EventNotification is the subset of the S3 event message delivered via
// SQS that the storage events poller cares about.
type S3EventNotification struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string        `json:"eventName"`
	S3        S3EventEntity `json:"s3"`
}

type S3EventEntity struct {
	Object S3EventObject `json:"object"`
}

type S3EventObject struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}
