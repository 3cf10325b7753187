package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/mailvault/pkg/store"
)

// ContentType of archived objects.
const ContentType = "application/x-ndjson"

// ObjectPutter is the part of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes sent messages to S3 as JSON Lines, one object per call.
type S3Archiver struct {
	client ObjectPutter
	now    func() time.Time
	bucket string
	prefix string
}

// New creates an archiver with a static-credentials S3 client.
func New(cfg Config) (*S3Archiver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates an archiver on an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, now: time.Now, bucket: bucket, prefix: prefix}
}

// Archive uploads msgs under a key derived from the cleanup cutoff and the
// current time. An empty batch uploads nothing.
func (a *S3Archiver) Archive(ctx context.Context, cutoff time.Time, msgs []*store.SentMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	body, err := encode(msgs)
	if err != nil {
		return err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.key(cutoff)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(ContentType),
	})
	if err != nil {
		return wrapS3Error(err)
	}
	return nil
}

// key is <prefix>YYYY/MM/DD/<cutoff unix>-<now unix nano>.jsonl, dated by the cutoff.
func (a *S3Archiver) key(cutoff time.Time) string {
	cutoff = cutoff.UTC()
	return fmt.Sprintf("%s%s/%d-%d.jsonl", a.prefix, cutoff.Format("2006/01/02"), cutoff.Unix(), a.now().UnixNano())
}

func encode(msgs []*store.SentMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}
	return buf.Bytes(), nil
}
