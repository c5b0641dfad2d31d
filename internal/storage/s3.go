package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/repository"
)

// maxConfigObjectSize bounds how much of an object Get reads.
const maxConfigObjectSize = 4 << 20

type configObject struct {
	Config    json.RawMessage      `json:"config"`
	UpdatedAt repository.Timestamp `json:"updated_at"`
}

type storedObject struct {
	Config    json.RawMessage `json:"config"`
	UpdatedAt json.RawMessage `json:"updated_at"`
}

// S3ConfigRepository stores each user's config as one object under a key
// prefix. A PutObject replaces the object as a whole, so readers never observe
// a partial write.
type S3ConfigRepository struct {
	client    ObjectAPI
	bucket    string
	keyPrefix string
}

func NewS3ConfigRepository(client ObjectAPI, bucket, keyPrefix string) *S3ConfigRepository {
	return &S3ConfigRepository{
		client:    client,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

// Init checks that the bucket is reachable.
func (s *S3ConfigRepository) Init(ctx context.Context) error {
	if s.bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3ConfigRepository) Get(ctx context.Context, userID string) (*domain.ConfigRecord, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(userID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get config object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxConfigObjectSize))
	if err != nil {
		return nil, fmt.Errorf("read config object: %w", err)
	}

	var obj storedObject
	if err := json.Unmarshal(data, &obj); err != nil || len(obj.Config) == 0 || string(obj.Config) == "null" {
		return nil, repository.ErrNotFound
	}
	return &domain.ConfigRecord{
		UserID:    userID,
		Config:    obj.Config,
		UpdatedAt: repository.LenientTimestamp(obj.UpdatedAt),
	}, nil
}

func (s *S3ConfigRepository) Put(ctx context.Context, userID string, config json.RawMessage, updatedAt time.Time) (*domain.ConfigRecord, error) {
	body, err := json.Marshal(configObject{Config: config, UpdatedAt: repository.Timestamp{Time: updatedAt}})
	if err != nil {
		return nil, fmt.Errorf("encode config object: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(userID)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("put config object: %w", err)
	}

	return &domain.ConfigRecord{
		UserID:    userID,
		Config:    append(json.RawMessage(nil), config...),
		UpdatedAt: updatedAt,
	}, nil
}

func (s *S3ConfigRepository) key(userID string) string {
	name := userID + ".json"
	if s.keyPrefix == "" {
		return name
	}
	return s.keyPrefix + "/" + name
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ repository.ConfigRepository = (*S3ConfigRepository)(nil)
