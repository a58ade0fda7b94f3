package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
)

// S3Config locates the results bucket. Credentials fall back to the
// default AWS provider chain when the keys are empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Session creates an AWS session for cfg.
func NewS3Session(cfg S3Config, logger *zap.Logger) (*session.Session, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		logger.Info("aws.credentials", zap.String("provider", "static"))
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		logger.Info("aws.credentials", zap.String("provider", "default chain"))
	}
	return session.NewSession(awsCfg)
}

// defaultS3URL is where public objects are linked when no endpoint is set.
const defaultS3URL = "https://s3.amazonaws.com"

// S3Publisher uploads pages to a public S3 bucket.
type S3Publisher struct {
	bucket   string
	baseURL  string
	uploader s3manageriface.UploaderAPI
	ids      *IDs
	logger   *zap.Logger
}

// NewS3Publisher creates a publisher for bucket using uploader.
func NewS3Publisher(bucket string, uploader s3manageriface.UploaderAPI, logger *zap.Logger) (*S3Publisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 publisher needs a bucket", internalerr.ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Publisher{bucket: bucket, baseURL: defaultS3URL, uploader: uploader, ids: NewIDs(), logger: logger}, nil
}

// NewS3PublisherFromConfig opens a session and builds the uploader.
func NewS3PublisherFromConfig(cfg S3Config, logger *zap.Logger) (*S3Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sess, err := NewS3Session(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	p, err := NewS3Publisher(cfg.Bucket, s3manager.NewUploader(sess), logger)
	if err != nil {
		return nil, err
	}
	if cfg.Endpoint != "" {
		p.baseURL = endpointURL(cfg.Endpoint)
	}
	return p, nil
}

// endpointURL turns a configured endpoint into a link base. Custom
// endpoints are addressed path style, like the session does.
func endpointURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

// Publish implements Publisher.
func (p *S3Publisher) Publish(ctx context.Context, page Page) (string, error) {
	key := p.ids.New() + ".html"
	url := fmt.Sprintf("%s/%s/%s", p.baseURL, p.bucket, key)
	p.logger.Info("publishing results", zap.String("url", url))

	_, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Body:        bytes.NewReader(page.HTML),
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("text/html"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return url, nil
}
