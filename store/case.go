package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/health"
	"github.com/casevault/casevault/internal/retries"
	"github.com/casevault/casevault/models"
)

type CaseStore interface {
	Create(ctx context.Context, c models.Case) error
	Get(ctx context.Context, caseID string) (*models.Case, error)
	Exists(ctx context.Context, caseID string) (bool, error)
	List(ctx context.Context) ([]models.Case, error)
	UpdateAggregates(ctx context.Context, caseID string, agg models.CaseAggregates, updatedAt time.Time) error

	health.ReadinessCheck
}

type DynamoDbCaseStoreImpl struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoDbCaseStoreImpl(client *dynamodb.Client, tableName string) *DynamoDbCaseStoreImpl {
	return &DynamoDbCaseStoreImpl{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoDbCaseStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	return retries.Retry(
		ctx,
		retries.HealthAttempts,
		retries.HealthBaseDelay,
		func() error {
			_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(s.tableName),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
}

func (s *DynamoDbCaseStoreImpl) Name() string {
	return "CaseStore[cases]"
}

func (s *DynamoDbCaseStoreImpl) Create(ctx context.Context, c models.Case) error {
	caseItem, err := attributevalue.MarshalMap(c)
	if err != nil {
		return err
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:           aws.String(s.tableName),
				Item:                caseItem,
				ConditionExpression: aws.String("attribute_not_exists(case_id)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrDuplicateFile
	}
	return err
}

func (s *DynamoDbCaseStoreImpl) Get(ctx context.Context, caseID string) (*models.Case, error) {
	var c models.Case

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"case_id": &types.AttributeValueMemberS{Value: caseID},
				},
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrCaseNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &c)
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, err
	}

	return &c, nil
}

// Exists is the cheap lookup used by session creation; only the key is
// projected.
func (s *DynamoDbCaseStoreImpl) Exists(ctx context.Context, caseID string) (bool, error) {
	var exists bool

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"case_id": &types.AttributeValueMemberS{Value: caseID},
				},
				ProjectionExpression: aws.String("case_id"),
			})
			if err != nil {
				return err
			}

			exists = out.Item != nil
			return nil
		},
		retries.IsRetriableDbError,
	)

	return exists, err
}

func (s *DynamoDbCaseStoreImpl) List(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			cases = cases[:0]

			paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
				TableName: aws.String(s.tableName),
			})

			for paginator.HasMorePages() {
				page, err := paginator.NextPage(ctx)
				if err != nil {
					return err
				}

				var pageCases []models.Case
				if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageCases); err != nil {
					return err
				}
				cases = append(cases, pageCases...)
			}

			return nil
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, err
	}

	return cases, nil
}

// UpdateAggregates overwrites the denormalized statistics unconditionally.
// Last writer wins; every writer derives from the full completed-file set, so
// any landed snapshot is individually correct.
func (s *DynamoDbCaseStoreImpl) UpdateAggregates(ctx context.Context, caseID string, agg models.CaseAggregates, updatedAt time.Time) error {
	lastActivityAttr, err := attributevalue.Marshal(agg.LastActivity)
	if err != nil {
		return err
	}
	updatedAtAttr, err := attributevalue.Marshal(updatedAt)
	if err != nil {
		return err
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"case_id": &types.AttributeValueMemberS{Value: caseID},
				},
				UpdateExpression: aws.String(
					"SET total_screenshots = :ss, total_videos = :vv, total_file_size = :sz, last_activity = :la, updated_at = :ua",
				),
				ConditionExpression: aws.String("attribute_exists(case_id)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":ss": &types.AttributeValueMemberN{Value: strconv.Itoa(agg.TotalScreenshots)},
					":vv": &types.AttributeValueMemberN{Value: strconv.Itoa(agg.TotalVideos)},
					":sz": &types.AttributeValueMemberN{Value: strconv.FormatInt(agg.TotalFileSize, 10)},
					":la": lastActivityAttr,
					":ua": updatedAtAttr,
				},
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrCaseNotFound
	}
	return err
}
