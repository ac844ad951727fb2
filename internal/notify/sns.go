// Package notify publishes consumption alerts. When cloud services are
// disabled the publisher is a no-op and dashboards rely on the replicated
// state alone.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

// Notifier is what consumers of the analyzer output publish through.
type Notifier interface {
	SendConsumptionAlert(ctx context.Context, industry domain.Industry, c domain.Consumption) error
}

// SNSClient wraps AWS SNS for alert notifications.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
}

func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}, nil
}

// SendConsumptionAlert publishes one alert for an industry whose
// extrapolated daily usage crossed an alert threshold.
func (c *SNSClient) SendConsumptionAlert(ctx context.Context, industry domain.Industry, cons domain.Consumption) error {
	subject := fmt.Sprintf("Gas Consumption Alert [%s]: %s", cons.Level, industry.Name)
	message := fmt.Sprintf(
		"Consumption Alert\n\n"+
			"Industry: %s (%s)\n"+
			"Subscription: %s\n"+
			"Extrapolated daily usage: %.2f m3/day\n"+
			"Allowed daily consumption: %.2f m3/day\n"+
			"Usage: %.1f%%\n"+
			"Level: %s\n"+
			"Time: %s\n",
		industry.Name,
		industry.City,
		industry.SubscriptionID,
		cons.RatePerDay,
		industry.AllowedDailyConsumption,
		cons.Percent,
		cons.Level,
		time.Now().Format(time.RFC3339),
	)

	_, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

// Noop satisfies Notifier when USE_CLOUD_SERVICES is off.
type Noop struct{}

func (Noop) SendConsumptionAlert(context.Context, domain.Industry, domain.Consumption) error {
	return nil
}
