package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves the SDK config for region, honouring static keys
// when they are configured and falling back to the default chain otherwise.
func loadAWSConfig(ctx context.Context, region string, auth AWSAuthConfig) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if auth.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(auth.AccessKeyID, auth.SecretAccessKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// stringAttributes converts event attributes into the SDK's typed shape via build.
func stringAttributes[T any](attrs map[string]string, build func(string) T) map[string]T {
	out := make(map[string]T, len(attrs))
	for k, v := range attrs {
		out[k] = build(v)
	}
	return out
}
