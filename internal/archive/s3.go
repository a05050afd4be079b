// Package archive ships terminal jobs past the retention window to S3,
// one JSON object per job, before the cleanup sweep deletes them from
// the durable store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/store"
)

// jobRecord is the flattened shape archived per job, bundling its
// terminal row with the artifacts and events a post-hoc audit needs.
type jobRecord struct {
	Job       store.Job        `json:"job"`
	Artifacts []store.Artifact `json:"artifacts"`
	Events    []store.Event    `json:"events"`
}

// Archiver uploads terminal jobs to S3, one object per job.
type Archiver struct {
	bucket   string
	prefix   string
	uploader *s3manager.Uploader
	log      *zap.Logger
}

// NewArchiver builds an S3 session and verifies bucket access. Returns
// (nil, nil) if S3 archival is disabled in config.
func NewArchiver(cfg config.Archive, log *zap.Logger) (*Archiver, error) {
	if !cfg.S3Enabled {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.S3Region)})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	client := s3.New(sess)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.S3Bucket)}); err != nil {
		return nil, fmt.Errorf("access bucket %s: %w", cfg.S3Bucket, err)
	}

	return &Archiver{
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		uploader: s3manager.NewUploader(sess),
		log:      log,
	}, nil
}

// ArchiveJob uploads one job's full record (row, artifacts, events) as
// a single object, keyed by the job's creation year and month for
// manageable prefix listing.
func (a *Archiver) ArchiveJob(ctx context.Context, job store.Job, artifacts []store.Artifact, events []store.Event) error {
	if a == nil {
		return nil
	}

	record := jobRecord{Job: job, Artifacts: artifacts, Events: events}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}

	key := fmt.Sprintf("%s/year=%s/month=%s/%s.json",
		a.prefix, job.CreatedAt.Format("2006"), job.CreatedAt.Format("01"), job.JobID)

	_, err = a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload job %s: %w", job.JobID, err)
	}
	a.log.Debug("archived job to s3", zap.String("job_id", job.JobID), zap.String("key", key))
	return nil
}
