// Package photos issues presigned S3 URLs for planting and verification
// photos. The rest of the system only stores the returned object key.
package photos

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/config"
	"github.com/dmitrijs2005/reforest/internal/timex"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Kind is the key prefix a photo is stored under.
type Kind string

const (
	KindPlanting     Kind = "plantings"
	KindVerification Kind = "verifications"
	KindLocation     Kind = "locations"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPlanting, KindVerification, KindLocation:
		return true
	}
	return false
}

// Upload is a presigned PUT. The client uploads to URL and then submits Key.
type Upload struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// S3Store presigns against an S3-compatible endpoint (MinIO in development).
type S3Store struct {
	region    string
	accessKey string
	secretKey string
	endpoint  string
	bucket    string
	validity  time.Duration
	clock     timex.Clock
	newID     func() string
}

func NewS3Store(cfg *config.Config, clock timex.Clock) *S3Store {
	return &S3Store{
		region:    cfg.S3Region,
		accessKey: cfg.S3AccessKey,
		secretKey: cfg.S3SecretKey,
		endpoint:  cfg.S3BaseEndpoint,
		bucket:    cfg.S3Bucket,
		validity:  cfg.PhotoURLValidity,
		clock:     clock,
		newID:     uuid.NewString,
	}
}

// Key builds a storage key of the form <kind>/YYYY/MM/DD/<uuid>.
func (s *S3Store) Key(kind Kind) string {
	d := s.clock.Now()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s", kind, d.Year(), d.Month(), d.Day(), s.newID())
}

func (s *S3Store) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.accessKey,
			s.secretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.endpoint)
		// MinIO serves buckets by path
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload reserves a fresh key of the given kind and returns a URL the
// client can PUT the image to.
func (s *S3Store) PresignUpload(ctx context.Context, kind Kind) (*Upload, error) {
	if !kind.Valid() {
		return nil, common.NewValidationError("kind", fmt.Sprintf("unknown photo kind %q", kind))
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return nil, err
	}

	key := s.Key(kind)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.validity))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &Upload{Key: key, URL: req.URL, ExpiresAt: s.clock.Now().Add(s.validity)}, nil
}

// PresignDownload returns a time-limited GET URL for an existing key.
func (s *S3Store) PresignDownload(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", common.NewValidationError("key", "photo key is required")
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.validity))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
