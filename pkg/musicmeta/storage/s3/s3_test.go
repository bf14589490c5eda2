package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "tunebox-assets",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
	})

	t.Run("CustomEndpoint", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "tunebox-assets",
			Region:          "eu-west-1",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.NotNil(t, backend.client)
	})
}

func TestApplySSE(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		backend := &Backend{config: Config{}}
		input := &awss3.PutObjectInput{Bucket: aws.String("b"), Key: aws.String("k")}
		backend.applySSE(input)
		assert.Empty(t, input.ServerSideEncryption)
	})

	t.Run("AES256", func(t *testing.T) {
		backend := &Backend{config: Config{EnableSSE: true, SSEAlgorithm: "AES256"}}
		input := &awss3.PutObjectInput{Bucket: aws.String("b"), Key: aws.String("k")}
		backend.applySSE(input)
		assert.Equal(t, types.ServerSideEncryptionAes256, input.ServerSideEncryption)
	})

	t.Run("KMSWithKey", func(t *testing.T) {
		backend := &Backend{config: Config{
			EnableSSE:    true,
			SSEAlgorithm: "aws:kms",
			SSEKMSKeyID:  "key-id",
		}}
		input := &awss3.PutObjectInput{Bucket: aws.String("b"), Key: aws.String("k")}
		backend.applySSE(input)
		assert.Equal(t, types.ServerSideEncryptionAwsKms, input.ServerSideEncryption)
		assert.Equal(t, "key-id", aws.ToString(input.SSEKMSKeyId))
	})
}

func TestIsBucketMissing(t *testing.T) {
	assert.True(t, isBucketMissing(&types.NotFound{}))
	assert.True(t, isBucketMissing(&types.NoSuchBucket{}))
	assert.False(t, isBucketMissing(assert.AnError))
}
