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

const (
	fileKeyIndex       = "file_key-index"
	caseCreatedAtIndex = "case_id-created_at-index"
)

type FileStore interface {
	Create(ctx context.Context, file models.CaseFile) error
	Get(ctx context.Context, fileID string) (*models.CaseFile, error)
	GetByKey(ctx context.Context, fileKey string) (*models.CaseFile, error)
	ListByCase(ctx context.Context, caseID string) ([]models.CaseFile, error)
	MarkCompleted(ctx context.Context, fileID string, fileSize int64, checksum string, uploadedAt time.Time) error
	Delete(ctx context.Context, fileID string) error
	ScanExpiredPending(ctx context.Context, now time.Time) ([]models.CaseFile, error)
	ScanCompletedSince(ctx context.Context, since time.Time) ([]models.CaseFile, error)

	health.ReadinessCheck
}

type DynamoDbFileStoreImpl struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoDbFileStoreImpl(client *dynamodb.Client, tableName string) *DynamoDbFileStoreImpl {
	return &DynamoDbFileStoreImpl{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoDbFileStoreImpl) IsReady(ctx context.Context) error {
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

func (s *DynamoDbFileStoreImpl) Name() string {
	return "FileStore[case_files]"
}

func (s *DynamoDbFileStoreImpl) Create(ctx context.Context, file models.CaseFile) error {
	fileItem, err := attributevalue.MarshalMap(file)
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
				Item:                fileItem,
				ConditionExpression: aws.String("attribute_not_exists(file_id)"),
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

func (s *DynamoDbFileStoreImpl) Get(ctx context.Context, fileID string) (*models.CaseFile, error) {
	var file models.CaseFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"file_id": &types.AttributeValueMemberS{Value: fileID},
				},
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrFileNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &file)
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *DynamoDbFileStoreImpl) GetByKey(ctx context.Context, fileKey string) (*models.CaseFile, error) {
	var file models.CaseFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(s.tableName),
				IndexName:              aws.String(fileKeyIndex),
				KeyConditionExpression: aws.String("file_key = :k"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":k": &types.AttributeValueMemberS{Value: fileKey},
				},
				Limit: aws.Int32(1),
			})
			if err != nil {
				return err
			}

			if len(out.Items) == 0 {
				return apperror.ErrFileNotFound
			}

			return attributevalue.UnmarshalMap(out.Items[0], &file)
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *DynamoDbFileStoreImpl) ListByCase(ctx context.Context, caseID string) ([]models.CaseFile, error) {
	var files []models.CaseFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			files = files[:0]

			paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
				TableName:              aws.String(s.tableName),
				IndexName:              aws.String(caseCreatedAtIndex),
				KeyConditionExpression: aws.String("case_id = :c"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":c": &types.AttributeValueMemberS{Value: caseID},
				},
			})

			for paginator.HasMorePages() {
				page, err := paginator.NextPage(ctx)
				if err != nil {
					return err
				}

				var pageFiles []models.CaseFile
				if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageFiles); err != nil {
					return err
				}
				files = append(files, pageFiles...)
			}

			return nil
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, err
	}

	return files, nil
}

// MarkCompleted flips a pending record to completed. The condition keeps a
// confirmation from racing a concurrent delete or a double confirmation:
// the record must still exist and still be pending.
func (s *DynamoDbFileStoreImpl) MarkCompleted(ctx context.Context, fileID string, fileSize int64, checksum string, uploadedAt time.Time) error {
	uploadedAtAttr, err := attributevalue.Marshal(uploadedAt)
	if err != nil {
		return err
	}

	values := map[string]types.AttributeValue{
		":completed": &types.AttributeValueMemberS{Value: string(models.FileStatusCompleted)},
		":pending":   &types.AttributeValueMemberS{Value: string(models.FileStatusPending)},
		":size":      &types.AttributeValueMemberN{Value: strconv.FormatInt(fileSize, 10)},
		":at":        uploadedAtAttr,
	}
	update := "SET #st = :completed, file_size = :size, uploaded_at = :at"
	if checksum != "" {
		update += ", checksum = :sum"
		values[":sum"] = &types.AttributeValueMemberS{Value: checksum}
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"file_id": &types.AttributeValueMemberS{Value: fileID},
				},
				UpdateExpression:          aws.String(update),
				ConditionExpression:       aws.String("attribute_exists(file_id) AND #st = :pending"),
				ExpressionAttributeNames:  map[string]string{"#st": "status"},
				ExpressionAttributeValues: values,
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrInvalidState
	}
	return err
}

func (s *DynamoDbFileStoreImpl) Delete(ctx context.Context, fileID string) error {
	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"file_id": &types.AttributeValueMemberS{Value: fileID},
				},
				ConditionExpression: aws.String("attribute_exists(file_id)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrFileNotFound
	}
	return err
}

// ScanExpiredPending walks the whole table looking for pending records past
// their deadline. A full scan is acceptable at the volumes this table sees;
// only the reaper calls this.
func (s *DynamoDbFileStoreImpl) ScanExpiredPending(ctx context.Context, now time.Time) ([]models.CaseFile, error) {
	nowAttr, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, err
	}

	return s.scan(ctx, "#st = :pending AND expires_at < :now", map[string]types.AttributeValue{
		":pending": &types.AttributeValueMemberS{Value: string(models.FileStatusPending)},
		":now":     nowAttr,
	})
}

// ScanCompletedSince feeds the statistics endpoint when no case scopes the
// query.
func (s *DynamoDbFileStoreImpl) ScanCompletedSince(ctx context.Context, since time.Time) ([]models.CaseFile, error) {
	sinceAttr, err := attributevalue.Marshal(since)
	if err != nil {
		return nil, err
	}

	return s.scan(ctx, "#st = :completed AND uploaded_at >= :since", map[string]types.AttributeValue{
		":completed": &types.AttributeValueMemberS{Value: string(models.FileStatusCompleted)},
		":since":     sinceAttr,
	})
}

func (s *DynamoDbFileStoreImpl) scan(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]models.CaseFile, error) {
	var files []models.CaseFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			files = files[:0]

			paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
				TableName:                 aws.String(s.tableName),
				FilterExpression:          aws.String(filter),
				ExpressionAttributeNames:  map[string]string{"#st": "status"},
				ExpressionAttributeValues: values,
			})

			for paginator.HasMorePages() {
				page, err := paginator.NextPage(ctx)
				if err != nil {
					return err
				}

				var pageFiles []models.CaseFile
				if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageFiles); err != nil {
					return err
				}
				files = append(files, pageFiles...)
			}

			return nil
		},
		retries.IsRetriableDbError,
	)

	if err != nil {
		return nil, err
	}

	return files, nil
}
