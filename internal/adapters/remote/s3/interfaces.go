package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

//go:generate mockery --name S3ClientInterface --output ./mocks --outpkg mocks --case underscore
//go:generate mockery --name STSClientInterface --output ./mocks --outpkg mocks --case underscore

// S3ClientInterface is the slice of the S3 API the sink needs.
type S3ClientInterface interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type STSClientInterface interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}
