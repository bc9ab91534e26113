/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"k8s.io/klog/v2"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// S3Store keeps content-addressed objects in an S3-compatible bucket. The hash is the
// object key; dedup is a HeadObject. Uploads spool to a local temp file first so the
// hash is known before any remote write.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

func NewS3Store(ctx context.Context) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(commonconfig.GetS3Region()),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			commonconfig.GetS3AccessKey(), commonconfig.GetS3SecretKey(), "")),
	)
	if err != nil {
		return nil, commonerrors.NewStorageIO(err.Error())
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := commonconfig.GetS3Endpoint(); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	store := &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   commonconfig.GetS3Bucket(),
	}
	if err = store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	klog.Infof("init s3 blob store, bucket: %s", store.bucket)
	return store, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return commonerrors.NewStorageIO(err.Error())
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, r io.Reader) (string, int64, bool, error) {
	spool, err := os.CreateTemp("", "meshstash-s3-put-")
	if err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(spool, hasher), newContextReader(ctx, r))
	if err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	exists, err := s.Exists(ctx, hash)
	if err != nil {
		return "", 0, false, err
	}
	if exists {
		return hash, written, false, nil
	}
	if _, err = spool.Seek(0, io.SeekStart); err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(hash),
		Body:   spool,
	})
	if err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	return hash, written, true, nil
}

func (s *S3Store) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	if !IsValidHash(hash) {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("invalid blob hash %q", hash))
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(hash),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("blob %s not found", hash))
		}
		return nil, commonerrors.NewStorageIO(err.Error())
	}
	return out.Body, nil
}

func (s *S3Store) Exists(ctx context.Context, hash string) (bool, error) {
	if !IsValidHash(hash) {
		return false, commonerrors.NewBadRequest(fmt.Sprintf("invalid blob hash %q", hash))
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(hash),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, commonerrors.NewStorageIO(err.Error())
	}
	return true, nil
}

func (s *S3Store) Remove(ctx context.Context, hash string) error {
	if !IsValidHash(hash) {
		return commonerrors.NewBadRequest(fmt.Sprintf("invalid blob hash %q", hash))
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(hash),
	})
	if err != nil {
		return commonerrors.NewStorageIO(err.Error())
	}
	return nil
}

// NewStore selects the configured backend. Construction failures carry a call
// stack via errors.WrapError.
func NewStore(ctx context.Context) (Store, error) {
	switch backend := commonconfig.GetBlobBackend(); backend {
	case BackendS3:
		store, err := NewS3Store(ctx)
		if err != nil {
			return nil, commonerrors.WrapError(err, "failed to initialize the s3 blob store", commonerrors.StorageIO)
		}
		return store, nil
	case BackendLocal:
		store, err := NewLocalStore(commonconfig.GetBlobStoreRoot())
		if err != nil {
			return nil, commonerrors.WrapError(err, "failed to initialize the local blob store", commonerrors.StorageIO)
		}
		return store, nil
	default:
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown blob backend %q", backend))
	}
}
