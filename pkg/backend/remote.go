package backend

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/marmos91/backpak/internal/repoerr"
)

// RemoteConfig configures a Remote backend against an S3-compatible bucket
// service (e.g. Backblaze B2's S3-compatible API).
type RemoteConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	KeyID          string
	ApplicationKey string
	ForcePathStyle bool
	KeyPrefix      string
}

// Remote is a Backend over an S3-compatible object store. It is expected to
// be wrapped in a Throttle (§4.2) so only N requests are in flight at once.
type Remote struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewRemote builds a Remote backend from cfg, verifying credentials lazily
// (no bucket probe at construction time; the first operation will surface
// any access failure as a Transport error).
func NewRemote(ctx context.Context, cfg RemoteConfig) (*Remote, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.KeyID, cfg.ApplicationKey, "",
		)),
	)
	if err != nil {
		return nil, repoerr.New(repoerr.KindTransport, "open", cfg.Bucket, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Remote{client: client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}, nil
}

func (r *Remote) fullKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + "/" + key
}

func (r *Remote) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, repoerr.New(repoerr.KindNotFound, "read", key, err)
		}
		return nil, repoerr.New(repoerr.KindTransport, "read", key, err)
	}
	return out.Body, nil
}

func (r *Remote) Write(ctx context.Context, key string, size int64, body io.Reader) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.fullKey(key)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "write", key, err)
	}
	return nil
}

func (r *Remote) List(ctx context.Context, prefix string) ([]Entry, error) {
	var out []Entry
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.fullKey(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, repoerr.New(repoerr.KindTransport, "list", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if r.keyPrefix != "" {
				key = key[len(r.keyPrefix)+1:]
			}
			out = append(out, Entry{Key: key, Size: aws.ToInt64(obj.Size)})
		}
	}
	return out, nil
}

func (r *Remote) Remove(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.fullKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return repoerr.New(repoerr.KindTransport, "remove", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ Backend = (*Remote)(nil)
