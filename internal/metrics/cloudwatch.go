package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/excuse-lab/excuse-api/internal/logger"
)

const (
	namespace         = "ExcuseAPI"
	cloudwatchTimeout = 5 * time.Second
)

// MetricPutter is the subset of the CloudWatch client used here
type MetricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client sends custom metrics to CloudWatch. Only enabled in production.
type Client struct {
	client      MetricPutter
	enabled     bool
	environment string
}

// NewClient creates a CloudWatch metrics client
func NewClient(ctx context.Context, environment string) *Client {
	if environment != "production" {
		logger.Info("CloudWatch metrics disabled", logger.Fields{"environment": environment})
		return &Client{environment: environment}
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("Failed to load AWS config for CloudWatch", logger.Fields{"error": err.Error()})
		return &Client{environment: environment}
	}

	logger.Info("CloudWatch metrics enabled", logger.Fields{"namespace": namespace})
	return NewClientWith(cloudwatch.NewFromConfig(cfg), environment)
}

// NewClientWith wraps an existing putter, enabled regardless of environment
func NewClientWith(putter MetricPutter, environment string) *Client {
	return &Client{client: putter, enabled: putter != nil, environment: environment}
}

// RecordAPIRequest records a request count and latency per endpoint
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	go func() {
		metricName := "APIRequests"
		if statusCode >= 500 {
			metricName = "APIErrors"
		}
		dimensions := m.dimensions("Endpoint", endpoint)
		m.put(metricName, 1, types.StandardUnitCount, dimensions)
		m.put("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	}()
}

// RecordGeneration records the outcome, attempts and latency of one generation
func (m *Client) RecordGeneration(sample GenerationSample) {
	if !m.enabled {
		return
	}

	go func() {
		m.putGeneration(sample)
	}()
}

func (m *Client) putGeneration(sample GenerationSample) {
	dimensions := m.dimensions("Outcome", sample.Outcome)
	m.put("Generations", 1, types.StandardUnitCount, dimensions)
	m.put("GenerationAttempts", float64(sample.Attempts), types.StandardUnitCount, dimensions)
	m.put("GenerationDuration", float64(sample.Duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)

	if sample.InputTokens+sample.OutputTokens > 0 {
		modelDims := m.dimensions("Model", sample.Model)
		m.put("Tokens/Input", float64(sample.InputTokens), types.StandardUnitCount, modelDims)
		m.put("Tokens/Output", float64(sample.OutputTokens), types.StandardUnitCount, modelDims)
	}
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	return []types.Dimension{
		{Name: aws.String(name), Value: aws.String(value)},
		{Name: aws.String("Environment"), Value: aws.String(m.environment)},
	}
}

func (m *Client) put(metricName string, value float64, unit types.StandardUnit, dimensions []types.Dimension) {
	ctx, cancel := context.WithTimeout(context.Background(), cloudwatchTimeout)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})
	if err != nil {
		logger.Warn("Failed to record CloudWatch metric", logger.Fields{
			"metric": metricName,
			"error":  err.Error(),
		})
	}
}
