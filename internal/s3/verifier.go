package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"sdcli/internal/bridge"
	"sdcli/internal/config"
	"sdcli/internal/model"
)

// Verifier implements bridge.BucketVerifier against the S3 API: before a
// bridge record is created, HeadBucket confirms the bucket exists and the
// supplied key pair can reach it. A custom endpoint supports S3-compatible
// object stores.
type Verifier struct {
	endpoint string
	region   string
	timeout  time.Duration
}

var _ bridge.BucketVerifier = (*Verifier)(nil)

// NewVerifier creates a Verifier from the bridge configuration.
func NewVerifier(cfg config.BridgeConfig) *Verifier {
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	return &Verifier{
		endpoint: cfg.S3Endpoint,
		region:   region,
		timeout:  10 * time.Second,
	}
}

// VerifyBucket checks the bucket with a HeadBucket call authenticated by the
// supplied static credentials.
func (v *Verifier) VerifyBucket(ctx context.Context, bucket string, creds *model.Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(v.region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
	)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if v.endpoint != "" {
			o.BaseEndpoint = aws.String(v.endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NotFound", "NoSuchBucket":
				return fmt.Errorf("bucket %q does not exist", bucket)
			case "Forbidden", "AccessDenied":
				return fmt.Errorf("access to bucket %q denied, check the key pair", bucket)
			}
		}
		return fmt.Errorf("checking bucket %q: %w", bucket, err)
	}

	return nil
}
