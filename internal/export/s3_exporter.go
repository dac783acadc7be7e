package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"weather-qc/internal/models"
	"weather-qc/pkg/logging"
)

// ObjectPutter is the part of the S3 client the exporter needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3 upload configuration
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string // MinIO, LocalStack...
	UsePathStyle bool
}

// NewS3Client creates an S3 client from the default AWS credential chain
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3Exporter uploads the rendered artifacts under <prefix>/<run id>/
type S3Exporter struct {
	client ObjectPutter
	bucket string
	prefix string
	names  FileNames
	logger *logging.StructuredLogger
}

// NewS3Exporter creates a new S3 exporter
func NewS3Exporter(client ObjectPutter, cfg S3Config, names FileNames, logger *logging.StructuredLogger) *S3Exporter {
	return &S3Exporter{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		names:  names,
		logger: logger,
	}
}

// Name identifies the exporter in logs and metrics
func (e *S3Exporter) Name() string {
	return "s3"
}

// Key returns the object key of an artifact of a run
func (e *S3Exporter) Key(runID, name string) string {
	return path.Join(e.prefix, runID, name)
}

// Export uploads every artifact. The first failed upload stops the export.
func (e *S3Exporter) Export(ctx context.Context, result *models.QCResult) error {
	artifacts, err := Render(result, e.names)
	if err != nil {
		return err
	}

	for _, a := range artifacts {
		key := e.Key(result.Run.ID, a.Name)
		_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(e.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(a.Data),
			ContentType: aws.String(a.ContentType),
			Metadata: map[string]string{
				"run-id": result.Run.ID,
				"source": result.Run.Source,
			},
		})
		if err != nil {
			return fmt.Errorf("s3 put %s failed: %w", key, err)
		}

		e.logger.Info(ctx, "[EXPORT_S3] Artifact uploaded", logging.Fields{
			"bucket": e.bucket,
			"key":    key,
			"bytes":  len(a.Data),
		})
	}
	return nil
}
