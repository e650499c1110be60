package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestNewResource(t *testing.T) {
	res, err := NewResource(context.Background(), ResourceConfig{
		ServiceName: "aws-examples-api",
		Environment: "staging",
		Region:      "eu-west-1",
		Table:       "aws-examples-messages",
	})
	require.NoError(t, err)

	set := res.Set()

	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "aws-examples-api", name.AsString())

	env, ok := set.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	assert.Equal(t, "staging", env.AsString())

	region, ok := set.Value(semconv.CloudRegionKey)
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", region.AsString())

	provider, ok := set.Value(semconv.CloudProviderKey)
	require.True(t, ok)
	assert.Equal(t, "aws", provider.AsString())

	tables, ok := set.Value(semconv.AWSDynamoDBTableNamesKey)
	require.True(t, ok)
	assert.Equal(t, []string{"aws-examples-messages"}, tables.AsStringSlice())
}

func TestNewResource_OmitsEmptyFields(t *testing.T) {
	res, err := NewResource(context.Background(), ResourceConfig{ServiceName: "aws-examples-api"})
	require.NoError(t, err)

	set := res.Set()
	_, ok := set.Value(semconv.DeploymentEnvironmentKey)
	assert.False(t, ok)
	_, ok = set.Value(semconv.CloudRegionKey)
	assert.False(t, ok)
	_, ok = set.Value(semconv.AWSDynamoDBTableNamesKey)
	assert.False(t, ok)

	version, ok := set.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, ServiceVersion, version.AsString())
}
