package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/adcanvas/adcanvas/common/config"
	img "github.com/adcanvas/adcanvas/common/image"
	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/common/random"
)

// Object key prefixes inside the configured folder.
const (
	PrefixInputs  = "inputs"
	PrefixOutputs = "outputs"
)

// S3API is the slice of the S3 client the adapter needs; narrowed for tests.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads raw bytes to an S3-compatible bucket and resolves public URLs.
// Safe for concurrent use.
type Client struct {
	api       S3API
	bucket    string
	folder    string
	publicURL string
}

// New builds a Client from the process configuration. The endpoint is overridden
// so S3-compatible stores (MinIO, R2, DO Spaces) work unchanged.
func New(ctx context.Context) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.S3AccessKey, config.S3SecretKey, "")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.S3EndpointURL)
		o.UsePathStyle = true
	})

	return NewWithAPI(api, config.S3BucketName, config.S3Folder, config.S3PublicLink), nil
}

// NewWithAPI wires an explicit S3 API implementation; used by New and by tests.
func NewWithAPI(api S3API, bucket, folder, publicURL string) *Client {
	return &Client{
		api:       api,
		bucket:    bucket,
		folder:    strings.Trim(folder, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Upload writes data under a fresh UUID key and returns (key, public url).
// The extension defaults to the subtype of mimeType when ext is empty. The object
// is written with public-read visibility; the caller decides whether a failure is
// fatal, no retries happen here.
func (c *Client) Upload(ctx context.Context, data []byte, mimeType, prefix, ext string) (string, string, error) {
	if ext == "" {
		ext = img.ExtensionFromMimeType(mimeType)
	}
	if ext == "" {
		return "", "", errors.Errorf("cannot derive file extension from mime type %q", mimeType)
	}

	key := fmt.Sprintf("%s/%s/%s.%s", c.folder, prefix, random.GetUUID(), ext)

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", "", errors.Wrapf(err, "put object %s", key)
	}

	logger.Logger.Debug("uploaded object",
		zap.String("key", key),
		zap.String("mime", mimeType),
		zap.Int("size", len(data)))

	return key, c.PublicURL(key), nil
}

// PublicURL resolves a stored key against the configured public base URL.
func (c *Client) PublicURL(key string) string {
	return c.publicURL + "/" + strings.TrimPrefix(key, "/")
}

// BaseURL returns the public base URL used by the proxy's same-origin check.
func (c *Client) BaseURL() string {
	return c.publicURL
}
