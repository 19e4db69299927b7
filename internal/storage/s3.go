// Package storage archives completed insight reports to S3 compatible
// object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opslens/opslens/internal/util"
	"github.com/opslens/opslens/pkg/insight"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	util.GetEnv("AWS_BUCKET")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

// InsightKey returns the object key an insight is archived under.
func InsightKey(tenantID string, insightID string) string {
	return fmt.Sprintf("insights/%s/%s.json", tenantID, insightID)
}

// PutInsight archives one insight as a JSON object and returns its key.
func PutInsight(ctx context.Context, client *s3.Client, ins *insight.Insight) (string, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	body, err := json.Marshal(ins)
	if err != nil {
		return "", fmt.Errorf("failed to encode insight: %w", err)
	}

	key := InsightKey(ins.TenantID, ins.ID)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload insight to S3: %w", err)
	}

	return key, nil
}

// GetInsight loads one archived insight by key.
func GetInsight(ctx context.Context, client *s3.Client, key string) (*insight.Insight, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get insight from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read insight contents: %w", err)
	}

	ins := &insight.Insight{}
	if err := json.Unmarshal(buf.Bytes(), ins); err != nil {
		return nil, fmt.Errorf("failed to decode insight: %w", err)
	}
	return ins, nil
}

// ListInsightKeys returns the archive keys for one tenant.
func ListInsightKeys(ctx context.Context, client *s3.Client, tenantID string) ([]string, error) {
	bucket := util.GetEnv("AWS_BUCKET")

	var keys []string
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fmt.Sprintf("insights/%s/", tenantID)),
	}

	for {
		listOutput, err := client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list insights for tenant %s: %w", tenantID, err)
		}

		for _, obj := range listOutput.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}

		if listOutput.IsTruncated != nil && *listOutput.IsTruncated {
			listInput.ContinuationToken = listOutput.NextContinuationToken
		} else {
			break
		}
	}

	return keys, nil
}
