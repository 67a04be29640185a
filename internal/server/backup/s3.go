// Package backup snapshots collection dumps to an S3-compatible store. It
// sits on the admin surface only; the real-time sync path never touches it.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/possync/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

// Uploader writes collection snapshots into one bucket.
type Uploader struct {
	config *sc.Config
	now    func() time.Time
}

func NewUploader(config *sc.Config) *Uploader {
	return &Uploader{config: config, now: time.Now}
}

// ObjectKey returns the bucket key for a snapshot of collection taken now,
// e.g. "backups/2026/9/1/items-1756684800000.json".
func (u *Uploader) ObjectKey(collection string) string {
	d := u.now()
	return fmt.Sprintf("backups/%d/%d/%d/%s-%d.json", d.Year(), d.Month(), d.Day(), collection, d.UnixMilli())
}

func (u *Uploader) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(u.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.config.S3RootUser,
			u.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(u.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload stores one snapshot body and returns the object key it was written
// under.
func (u *Uploader) Upload(ctx context.Context, collection string, body []byte) (string, error) {
	client, err := u.getClient()
	if err != nil {
		return "", err
	}

	bucket := u.config.S3Bucket
	key := u.ObjectKey(collection)
	contentType := "application/json"

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return key, nil
}
