package hosting

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"marketcast/internal/config"
)

// s3Provider uploads to the managed object store and returns a presigned GET
// URL for the written key.
type s3Provider struct {
	cfg *config.Config

	mu     sync.Mutex
	client *s3.Client
}

func newS3Provider(cfg *config.Config) *s3Provider {
	return &s3Provider{cfg: cfg}
}

func (p *s3Provider) Name() string { return "s3" }

func (p *s3Provider) Upload(ctx context.Context, localPath string) (string, error) {
	client, err := p.clientFor(ctx)
	if err != nil {
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	key := p.objectKey(localPath)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Hosting.S3Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentTypeFor(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	expiry := time.Duration(p.cfg.Hosting.PresignExpiryMinutes) * time.Minute
	presigner := s3.NewPresignClient(client)
	presigned, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Hosting.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return presigned.URL, nil
}

func (p *s3Provider) clientFor(ctx context.Context) (*s3.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.cfg.Hosting.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.Hosting.S3AccessKey, p.cfg.Hosting.S3SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(p.cfg.Hosting.S3Endpoint)
	p.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return p.client, nil
}

// objectKey namespaces uploads under the configured prefix by day, keeping
// the original filename which already carries a timestamp.
func (p *s3Provider) objectKey(localPath string) string {
	prefix := strings.Trim(p.cfg.Hosting.S3Prefix, "/")
	day := time.Now().UTC().Format("2006-01-02")
	return path.Join(prefix, day, filepath.Base(localPath))
}
