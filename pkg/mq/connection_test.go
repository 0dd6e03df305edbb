package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitrack/pkg/config"
)

func TestNewConnectionRejectsBadURL(t *testing.T) {
	_, err := NewConnection(config.MQConfig{URL: "http://not-amqp"}, "habitrack-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to RabbitMQ")

	_, err = NewPublisher(config.MQConfig{URL: "://"})
	assert.Error(t, err)
}
