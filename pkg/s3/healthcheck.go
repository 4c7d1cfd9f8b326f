package s3

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Healthcheck returns a probe function that verifies the bucket is
// reachable with the client's credentials.
func Healthcheck(client *s3.Client, bucket string) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
