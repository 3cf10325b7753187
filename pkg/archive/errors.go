package archive

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig = errors.New("archive: bucket, access key and secret key are required")
	ErrEncode        = errors.New("archive: failed to encode records")
	ErrAccessDenied  = errors.New("archive: access denied")
	ErrUploadFailed  = errors.New("archive: upload failed")
)

// wrapS3Error maps S3 API errors onto package sentinels. The original error
// is kept as text only.
func wrapS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUploadFailed, err)
}
