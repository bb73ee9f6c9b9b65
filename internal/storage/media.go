package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// URLResolver turns a stored media object key (user avatar, trip photo) into
// a URL clients can fetch. Keys live in profiles/trips owned by other
// services; this service only renders them.
type URLResolver interface {
	ResolveURL(ctx context.Context, key string) string
}

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	PresignTTL time.Duration
}

// S3Resolver resolves keys against an S3 bucket, either through a public CDN
// base URL or with presigned GET requests.
type S3Resolver struct {
	cfg     S3Config
	presign *s3.PresignClient
}

func NewS3Resolver(ctx context.Context, cfg S3Config) (*S3Resolver, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Resolver{
		cfg:     cfg,
		presign: s3.NewPresignClient(s3Client),
	}, nil
}

// ResolveURL returns "" for empty keys or presign failures; summaries render
// without an image rather than failing the request.
func (r *S3Resolver) ResolveURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	if r.cfg.PublicBase != "" {
		return strings.TrimSuffix(r.cfg.PublicBase, "/") + "/" + strings.TrimPrefix(key, "/")
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.cfg.PresignTTL))
	if err != nil {
		return ""
	}
	return req.URL
}

// NoopResolver is used when no media backend is configured.
type NoopResolver struct{}

func (NoopResolver) ResolveURL(ctx context.Context, key string) string {
	return ""
}
