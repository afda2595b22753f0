package dynamodb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	attrPK           = "PK"
	attrSK           = "SK"
	attrID           = "id"
	attrUsername     = "username"
	attrRecipient    = "recipient"
	attrFileName     = "file_name"
	attrFilePath     = "file_path"
	attrFileSize     = "file_size"
	attrSentAt       = "sent_at"
	attrStatus       = "status"
	attrErrorMessage = "error_message"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ScreenshotAttemptRepository persists attempts in a single DynamoDB table
// keyed by username, time-sorted so listing newest-first is a reverse query.
type ScreenshotAttemptRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewScreenshotAttemptRepository(ctx context.Context, cfg Config) (*ScreenshotAttemptRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return &ScreenshotAttemptRepository{
		client:    client,
		tableName: strings.TrimSpace(cfg.TableName),
	}, nil
}

func (r *ScreenshotAttemptRepository) Save(ctx context.Context, attempt model.PersistedAttempt) (model.PersistedAttempt, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.SentAt.IsZero() {
		attempt.SentAt = time.Now().UTC()
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      toItem(attempt),
	})
	if err != nil {
		return model.PersistedAttempt{}, fmt.Errorf("dynamodb put failed: %w", err)
	}

	return attempt, nil
}

// List queries by username when one is given; other filters are applied as a
// filter expression. Without a username the table is scanned.
func (r *ScreenshotAttemptRepository) List(ctx context.Context, query port.AttemptQuery) ([]model.PersistedAttempt, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if username := strings.TrimSpace(query.Username); username != "" {
		items, err = r.queryByUsername(ctx, username, query, limit+offset)
	} else {
		items, err = r.scanAll(ctx, query, limit+offset)
	}
	if err != nil {
		return nil, err
	}

	attempts := make([]model.PersistedAttempt, 0, len(items))
	for _, item := range items {
		attempt, err := fromItem(item)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	// Scans return items in key order; normalize to newest-first.
	sortNewestFirst(attempts)

	if offset >= len(attempts) {
		return []model.PersistedAttempt{}, nil
	}
	attempts = attempts[offset:]
	if len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

func (r *ScreenshotAttemptRepository) queryByUsername(
	ctx context.Context,
	username string,
	query port.AttemptQuery,
	fetchLimit int,
) ([]map[string]types.AttributeValue, error) {
	fromMS, toMS := normalizeTimeRange(query.From, query.To)

	keyCondition := "#pk = :pk AND #sk BETWEEN :from AND :to"
	input := &dynamodb.QueryInput{
		TableName:              &r.tableName,
		KeyConditionExpression: &keyCondition,
		ScanIndexForward:       boolPointer(false),
		Limit:                  int32Pointer(int32(fetchLimit)),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
			"#sk": attrSK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: buildPK(username)},
			":from": &types.AttributeValueMemberS{Value: sortLowerBound(fromMS)},
			":to":   &types.AttributeValueMemberS{Value: sortUpperBound(toMS)},
		},
	}
	applyFilter(query, input.ExpressionAttributeNames, input.ExpressionAttributeValues, func(expr string) {
		input.FilterExpression = &expr
	})

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("dynamodb query failed: %w", err)
	}
	return output.Items, nil
}

func (r *ScreenshotAttemptRepository) scanAll(
	ctx context.Context,
	query port.AttemptQuery,
	fetchLimit int,
) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.ScanInput{
		TableName:                 &r.tableName,
		Limit:                     int32Pointer(int32(fetchLimit)),
		ExpressionAttributeNames:  map[string]string{},
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}

	conditions := []string{}
	fromMS, toMS := normalizeTimeRange(query.From, query.To)
	if fromMS > 0 || toMS < math.MaxInt64 {
		input.ExpressionAttributeNames["#sent"] = attrSentAt
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(fromMS, 10)}
		input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(toMS, 10)}
		conditions = append(conditions, "#sent BETWEEN :from AND :to")
	}
	applyFilter(query, input.ExpressionAttributeNames, input.ExpressionAttributeValues, func(expr string) {
		conditions = append(conditions, expr)
	})
	if len(conditions) > 0 {
		expr := strings.Join(conditions, " AND ")
		input.FilterExpression = &expr
	}
	if len(input.ExpressionAttributeNames) == 0 {
		input.ExpressionAttributeNames = nil
		input.ExpressionAttributeValues = nil
	}

	output, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("dynamodb scan failed: %w", err)
	}
	return output.Items, nil
}

func applyFilter(
	query port.AttemptQuery,
	names map[string]string,
	values map[string]types.AttributeValue,
	set func(expr string),
) {
	conditions := []string{}
	if recipient := strings.TrimSpace(query.Recipient); recipient != "" {
		names["#recipient"] = attrRecipient
		values[":recipient"] = &types.AttributeValueMemberS{Value: recipient}
		conditions = append(conditions, "#recipient = :recipient")
	}
	if query.Status != "" {
		names["#status"] = attrStatus
		values[":status"] = &types.AttributeValueMemberS{Value: string(query.Status)}
		conditions = append(conditions, "#status = :status")
	}
	if len(conditions) > 0 {
		set(strings.Join(conditions, " AND "))
	}
}

func toItem(attempt model.PersistedAttempt) map[string]types.AttributeValue {
	sentAtMS := attempt.SentAt.UTC().UnixMilli()
	item := map[string]types.AttributeValue{
		attrPK:        &types.AttributeValueMemberS{Value: buildPK(attempt.Username)},
		attrSK:        &types.AttributeValueMemberS{Value: buildSK(sentAtMS, attempt.ID)},
		attrID:        &types.AttributeValueMemberS{Value: attempt.ID},
		attrUsername:  &types.AttributeValueMemberS{Value: attempt.Username},
		attrRecipient: &types.AttributeValueMemberS{Value: attempt.Recipient},
		attrFileName:  &types.AttributeValueMemberS{Value: attempt.FileName},
		attrFilePath:  &types.AttributeValueMemberS{Value: attempt.FilePath},
		attrFileSize:  &types.AttributeValueMemberN{Value: strconv.FormatInt(attempt.FileSizeBytes, 10)},
		attrSentAt:    &types.AttributeValueMemberN{Value: strconv.FormatInt(sentAtMS, 10)},
		attrStatus:    &types.AttributeValueMemberS{Value: string(attempt.Status)},
	}
	if attempt.ErrorMessage != "" {
		item[attrErrorMessage] = &types.AttributeValueMemberS{Value: attempt.ErrorMessage}
	}
	return item
}

func fromItem(item map[string]types.AttributeValue) (model.PersistedAttempt, error) {
	id, err := attrString(item, attrID)
	if err != nil {
		return model.PersistedAttempt{}, err
	}
	username, err := attrString(item, attrUsername)
	if err != nil {
		return model.PersistedAttempt{}, err
	}
	sentAtMS, err := attrInt64(item, attrSentAt)
	if err != nil {
		return model.PersistedAttempt{}, err
	}

	return model.PersistedAttempt{
		ID:            id,
		Username:      username,
		Recipient:     optionalString(item, attrRecipient),
		FileName:      optionalString(item, attrFileName),
		FilePath:      optionalString(item, attrFilePath),
		FileSizeBytes: optionalInt64(item, attrFileSize),
		SentAt:        time.UnixMilli(sentAtMS).UTC(),
		Status:        model.Status(optionalString(item, attrStatus)),
		ErrorMessage:  optionalString(item, attrErrorMessage),
	}, nil
}

func sortNewestFirst(attempts []model.PersistedAttempt) {
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].SentAt.After(attempts[j].SentAt)
	})
}

func normalizeTimeRange(from, to time.Time) (int64, int64) {
	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UTC().UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UTC().UnixMilli()
	}
	return fromMS, toMS
}

func buildPK(username string) string {
	return "USER#" + strings.ToLower(strings.TrimSpace(username))
}

func buildSK(sentAtMS int64, id string) string {
	return fmt.Sprintf("TS#%013d#ID#%s", sentAtMS, id)
}

func sortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func sortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	raw, ok := item[name]
	if !ok {
		return ""
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	raw, ok := item[name]
	if !ok {
		return 0
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func boolPointer(v bool) *bool {
	return &v
}

func int32Pointer(v int32) *int32 {
	return &v
}
