package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// PublisherMock satisfies both rabbitmq.Publisher and telemetry.Publisher.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *PublisherMock) Close() error {
	return m.Called().Error(0)
}

// ExpectAudit arms a Publish of an audit envelope on routingKey.
func (m *PublisherMock) ExpectAudit(routingKey string) *mock.Call {
	return m.On("Publish", mock.Anything, routingKey, mock.AnythingOfType("telemetry.AuditEnvelope"))
}
