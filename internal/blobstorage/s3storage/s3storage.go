// Package s3storage stores blobs in an S3-compatible bucket (AWS S3, MinIO).
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/patric-chuzhbe/userauth/internal/blobstorage"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options describes the bucket and how to reach it.
// Empty credentials fall back to the default AWS credential chain.
type Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Storage keeps blobs as objects named after the blob name.
type S3Storage struct {
	client s3API
	bucket string
}

// New builds an S3 client from opts.
func New(ctx context.Context, opts Options) (*S3Storage, error) {
	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOptions = append(
			loadOptions,
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
			),
		)
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/blobstorage/s3storage/s3storage.go/New(): error while `config.LoadDefaultConfig()` calling: %w",
			err,
		)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, opts.Bucket), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client s3API, bucket string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
	}
}

// Save uploads content under a freshly generated name and returns that name.
// The content is buffered: avatars are small and the SDK needs a seekable body.
func (s *S3Storage) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	name, err := blobstorage.GenerateName(originalName)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/blobstorage/s3storage/s3storage.go/Save(): error while `io.ReadAll()` calling: %w",
			err,
		)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf(
			"in internal/blobstorage/s3storage/s3storage.go/Save(): error while `s.client.PutObject()` calling: %w",
			err,
		)
	}

	return name, nil
}

// Open streams the named object. The caller closes the reader.
func (s *S3Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := blobstorage.ValidateName(name); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, blobstorage.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/blobstorage/s3storage/s3storage.go/Open(): error while `s.client.GetObject()` calling: %w",
			err,
		)
	}

	return out.Body, nil
}

// Delete removes the named object. S3 does not report missing keys on delete.
func (s *S3Storage) Delete(ctx context.Context, name string) error {
	if err := blobstorage.ValidateName(name); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf(
			"in internal/blobstorage/s3storage/s3storage.go/Delete(): error while `s.client.DeleteObject()` calling: %w",
			err,
		)
	}

	return nil
}
