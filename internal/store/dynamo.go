package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

// Dynamo implements Store over four DynamoDB tables. Used when the shared
// store runs in AWS instead of Postgres.
type Dynamo struct {
	svc    *dynamodb.Client
	prefix string
}

func NewDynamo(ctx context.Context, region, tablePrefix string) (*Dynamo, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &Dynamo{
		svc:    dynamodb.NewFromConfig(cfg),
		prefix: tablePrefix,
	}, nil
}

func (d *Dynamo) Close() error { return nil }

func (d *Dynamo) table(name string) *string {
	return aws.String(d.prefix + name)
}

type dynamoUser struct {
	ID       string `dynamodbav:"id"`
	Username string `dynamodbav:"username"`
	Password string `dynamodbav:"password"`
	FullName string `dynamodbav:"fullName"`
	Role     string `dynamodbav:"role"`
}

type dynamoMeter struct {
	ID           string `dynamodbav:"id"`
	SerialNumber string `dynamodbav:"serialNumber"`
	Name         string `dynamodbav:"name"`
}

type dynamoIndustry struct {
	ID                      string        `dynamodbav:"id"`
	Name                    string        `dynamodbav:"name"`
	SubscriptionID          string        `dynamodbav:"subscriptionId"`
	City                    string        `dynamodbav:"city"`
	Address                 string        `dynamodbav:"address"`
	Meters                  []dynamoMeter `dynamodbav:"meters"`
	AllowedDailyConsumption float64       `dynamodbav:"allowedDailyConsumption"`
}

type dynamoReading struct {
	ID         string  `dynamodbav:"id"`
	IndustryID string  `dynamodbav:"industryId"`
	MeterID    string  `dynamodbav:"meterId"`
	Timestamp  int64   `dynamodbav:"timestamp"`
	Value      float64 `dynamodbav:"value"`
	ImageRef   string  `dynamodbav:"imageRef"`
	RecordedBy string  `dynamodbav:"recordedBy"`
	IsManual   bool    `dynamodbav:"isManual"`
}

type dynamoAssignment struct {
	Username   string           `dynamodbav:"username"`
	Industries []dynamoIndustry `dynamodbav:"industries"`
}

func toDynamoIndustry(ind domain.Industry) dynamoIndustry {
	row := dynamoIndustry{
		ID:                      ind.ID,
		Name:                    ind.Name,
		SubscriptionID:          ind.SubscriptionID,
		City:                    ind.City,
		Address:                 ind.Address,
		AllowedDailyConsumption: ind.AllowedDailyConsumption,
	}
	for _, m := range ind.Meters {
		row.Meters = append(row.Meters, dynamoMeter(m))
	}
	return row
}

func (r dynamoIndustry) toDomain() domain.Industry {
	ind := domain.Industry{
		ID:                      r.ID,
		Name:                    r.Name,
		SubscriptionID:          r.SubscriptionID,
		City:                    r.City,
		Address:                 r.Address,
		AllowedDailyConsumption: r.AllowedDailyConsumption,
	}
	for _, m := range r.Meters {
		ind.Meters = append(ind.Meters, domain.Meter(m))
	}
	return ind
}

func (d *Dynamo) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Assignments: domain.Assignments{}}

	var users []dynamoUser
	if err := d.scan(ctx, "Users", &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			role = domain.RoleUser
		}
		snap.Users = append(snap.Users, domain.User{
			ID:       u.ID,
			Username: u.Username,
			Password: u.Password,
			FullName: u.FullName,
			Role:     role,
		})
	}

	var industries []dynamoIndustry
	if err := d.scan(ctx, "Industries", &industries); err != nil {
		return nil, err
	}
	for _, row := range industries {
		snap.Industries = append(snap.Industries, row.toDomain())
	}

	var readings []dynamoReading
	if err := d.scan(ctx, "Readings", &readings); err != nil {
		return nil, err
	}
	for _, row := range readings {
		snap.Readings = append(snap.Readings, domain.Reading{
			ID:         row.ID,
			IndustryID: row.IndustryID,
			MeterID:    row.MeterID,
			Timestamp:  time.UnixMilli(row.Timestamp),
			Value:      row.Value,
			ImageRef:   row.ImageRef,
			RecordedBy: row.RecordedBy,
			IsManual:   row.IsManual,
		})
	}

	var assignments []dynamoAssignment
	if err := d.scan(ctx, "Assignments", &assignments); err != nil {
		return nil, err
	}
	for _, row := range assignments {
		var list []domain.Industry
		for _, ind := range row.Industries {
			list = append(list, ind.toDomain())
		}
		snap.Assignments[row.Username] = list
	}

	return snap, nil
}

func (d *Dynamo) scan(ctx context.Context, name string, out any) error {
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(d.svc, &dynamodb.ScanInput{TableName: d.table(name)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", name, err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

func (d *Dynamo) put(ctx context.Context, name string, row any) error {
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = d.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: d.table(name),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}

func (d *Dynamo) PutUser(ctx context.Context, u domain.User) error {
	return d.put(ctx, "Users", dynamoUser{
		ID:       u.ID,
		Username: u.Username,
		Password: u.Password,
		FullName: u.FullName,
		Role:     string(u.Role),
	})
}

func (d *Dynamo) PutIndustry(ctx context.Context, ind domain.Industry) error {
	return d.put(ctx, "Industries", toDynamoIndustry(ind))
}

// PutReading uses a conditional put so a duplicate id leaves the stored
// reading untouched: first write wins.
func (d *Dynamo) PutReading(ctx context.Context, r domain.Reading) error {
	item, err := attributevalue.MarshalMap(dynamoReading{
		ID:         r.ID,
		IndustryID: r.IndustryID,
		MeterID:    r.MeterID,
		Timestamp:  r.Timestamp.UnixMilli(),
		Value:      r.Value,
		ImageRef:   r.ImageRef,
		RecordedBy: r.RecordedBy,
		IsManual:   r.IsManual,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	_, err = d.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           d.table("Readings"),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to put reading in DynamoDB: %w", err)
	}
	return nil
}

func (d *Dynamo) deleteByKey(ctx context.Context, name, keyName, id string) error {
	_, err := d.svc.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: d.table(name),
		Key: map[string]types.AttributeValue{
			keyName: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", name, err)
	}
	return nil
}

func (d *Dynamo) DeleteUser(ctx context.Context, id string) error {
	return d.deleteByKey(ctx, "Users", "id", id)
}

func (d *Dynamo) DeleteIndustry(ctx context.Context, id string) error {
	return d.deleteByKey(ctx, "Industries", "id", id)
}

func (d *Dynamo) DeleteReading(ctx context.Context, id string) error {
	return d.deleteByKey(ctx, "Readings", "id", id)
}

func (d *Dynamo) BulkPutIndustries(ctx context.Context, industries []domain.Industry) error {
	for _, ind := range industries {
		if err := d.PutIndustry(ctx, ind); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dynamo) SaveAssignment(ctx context.Context, username string, industries []domain.Industry) error {
	row := dynamoAssignment{Username: username}
	for _, ind := range industries {
		row.Industries = append(row.Industries, toDynamoIndustry(ind))
	}
	return d.put(ctx, "Assignments", row)
}
