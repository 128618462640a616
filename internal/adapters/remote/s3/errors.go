package s3

import (
	"context"
	stderrs "errors"
	"fmt"
	"slices"

	"github.com/aws/smithy-go"

	"github.com/olusolaa/sandbox-differ/internal/errors"
)

var permissionCodes = []string{
	"AccessDenied",
	"AllAccessDisabled",
	"AuthFailure",
	"ExpiredToken",
	"InvalidAccessKeyId",
	"InvalidClientTokenId",
	"SignatureDoesNotMatch",
	"UnauthorizedOperation",
}

// HandleAWSError maps an AWS SDK failure for operation on service to an
// application error. Context errors are returned unchanged.
func HandleAWSError(ctx context.Context, service, operation string, err error) error {
	if err == nil {
		return errors.New(errors.CodeInternal, fmt.Sprintf("unexpected nil error from %s %s", service, operation))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case slices.Contains(permissionCodes, code):
			return errors.WrapUserFacing(err, errors.CodePermission,
				fmt.Sprintf("AWS denied %s %s (%s)", service, operation, code),
				"Check the AWS credentials and that they allow s3:PutObject on the report bucket.")
		case code == "NoSuchBucket":
			return errors.WrapUserFacing(err, errors.CodeTransport,
				fmt.Sprintf("report bucket does not exist (%s %s)", service, operation),
				"Create the bucket or fix reporting.s3.bucket.")
		}
	}
	return errors.Wrap(err, errors.CodeTransport, fmt.Sprintf("%s %s failed", service, operation))
}
