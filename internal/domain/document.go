package domain

import "time"

// Document is a stable reference to an uploaded file, owned exclusively by
// the application it is attached to. The core never inspects document bytes.
type Document struct {
	ID          string
	Name        string
	URL         string
	ContentType string
	SizeBytes   int64
	UploadedAt  time.Time
}
