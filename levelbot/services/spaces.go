package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SpacesService stores generated assets (rank cards) in DigitalOcean Spaces.
type SpacesService struct {
	client    *s3.Client
	bucket    string
	region    string
	assetRoot string
}

func NewSpacesService(key, secret, region, bucket, assetRoot string) (*SpacesService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load spaces config: %w", err)
	}

	return &SpacesService{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		region:    region,
		assetRoot: strings.Trim(assetRoot, "/"),
	}, nil
}

func (s *SpacesService) rankCardKey(guildID, userID string) string {
	return fmt.Sprintf("%s/rankcards/%s/%s.png", s.assetRoot, guildID, userID)
}

// UploadRankCard stores a rendered rank card and returns its public URL.
// Re-uploading overwrites the previous card for the same user.
func (s *SpacesService) UploadRankCard(ctx context.Context, guildID, userID string, png []byte) (string, error) {
	key := s.rankCardKey(guildID, userID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload rank card: %w", err)
	}

	return s.PublicURL(key), nil
}

// DeleteRankCard removes a stored rank card, e.g. when a user's progression
// is reset.
func (s *SpacesService) DeleteRankCard(ctx context.Context, guildID, userID string) error {
	key := s.rankCardKey(guildID, userID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete rank card: %w", err)
	}
	return nil
}

// PublicURL builds the CDN URL for a stored object key.
func (s *SpacesService) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.bucket, s.region, key)
}

func (s *SpacesService) Bucket() string { return s.bucket }
func (s *SpacesService) Region() string { return s.region }
