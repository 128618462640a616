package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
	"github.com/olusolaa/sandbox-differ/internal/reporting"
	"github.com/olusolaa/sandbox-differ/internal/reporting/text"
)

const SinkTypeS3 = "s3"

type Config struct {
	Bucket string `mapstructure:"bucket" validate:"required_with=Prefix Region"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// Sink mirrors the text rendering of every report to an S3 bucket so that
// assessments run on throwaway hosts keep their evidence.
type Sink struct {
	cfg       Config
	s3Client  S3ClientInterface
	stsClient STSClientInterface
	logger    ports.Logger

	mu        sync.Mutex
	accountID string
}

var _ ports.ReportSink = (*Sink)(nil)

type SinkOption func(*Sink)

func WithS3Client(client S3ClientInterface) SinkOption {
	return func(s *Sink) {
		if client != nil {
			s.s3Client = client
		}
	}
}

func WithSTSClient(client STSClientInterface) SinkOption {
	return func(s *Sink) {
		if client != nil {
			s.stsClient = client
		}
	}
}

// LoadAWSConfig resolves credentials the usual SDK way (env, shared config,
// instance role), pinning the region when one is configured.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, errors.CodeConfigValidation, "failed to load default AWS config")
	}
	return cfg, nil
}

func NewSink(awsCfg aws.Config, cfg Config, logger ports.Logger, opts ...SinkOption) (*Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.CodeConfigValidation, "s3 sink requires reporting.s3.bucket")
	}
	s := &Sink{
		cfg:       cfg,
		s3Client:  s3.NewFromConfig(awsCfg),
		stsClient: sts.NewFromConfig(awsCfg),
		logger:    logger.WithFields(map[string]any{"sink": SinkTypeS3, "bucket": cfg.Bucket}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Sink) Type() string { return SinkTypeS3 }

// verifyIdentity runs STS GetCallerIdentity once per sink so a credential
// problem surfaces as a permission error before the upload is attempted.
func (s *Sink) verifyIdentity(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountID != "" {
		return s.accountID, nil
	}

	out, err := s.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", HandleAWSError(ctx, "STS", "GetCallerIdentity", err)
	}
	if out.Account == nil {
		return "", errors.New(errors.CodeTransport, "AWS caller identity response did not contain an account ID")
	}
	s.accountID = aws.ToString(out.Account)
	return s.accountID, nil
}

func (s *Sink) objectKey(report *domain.ComparisonReport) string {
	return path.Join(s.cfg.Prefix, reporting.ArtifactPath(report, ".txt"))
}

func (s *Sink) Write(ctx context.Context, report *domain.ComparisonReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	account, err := s.verifyIdentity(ctx)
	if err != nil {
		return "", err
	}

	key := s.objectKey(report)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(text.Render(report)),
		ContentType: aws.String("text/plain; charset=us-ascii"),
		Metadata: map[string]string{
			"report-id": report.ID,
			"target":    string(report.Target),
		},
	})
	if err != nil {
		return "", HandleAWSError(ctx, "S3", "PutObject", err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	s.logger.Infof(ctx, "Report mirrored to %s (account %s)", location, account)
	return location, nil
}
