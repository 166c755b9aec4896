package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"
)

type UploadResult struct {
	Key      string `json:"key"`
	Location string `json:"location,omitempty"`
	ETag     string `json:"etag,omitempty"`
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	GetPublicURL(key string) string
}

const reportTimeLayout = "20060102T150405Z"

// ReportArchiver stores JSON documents under <prefix>/<scope>/<timestamp>.json.
type ReportArchiver struct {
	uploader FileUploader
	prefix   string
	now      func() time.Time
}

func NewReportArchiver(uploader FileUploader, prefix string) *ReportArchiver {
	return &ReportArchiver{uploader: uploader, prefix: prefix, now: time.Now}
}

// ReportKey is the object key for a report written at the given time.
func ReportKey(prefix, scope string, at time.Time) string {
	return path.Join(prefix, scope, at.UTC().Format(reportTimeLayout)+".json")
}

func (a *ReportArchiver) Archive(ctx context.Context, scope string, report interface{}) (*UploadResult, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report for %s: %w", scope, err)
	}
	return a.uploader.Upload(ctx, ReportKey(a.prefix, scope, a.now()), "application/json", bytes.NewReader(body))
}
