package push

import (
	"context"

	"crewsignal/pkg/circuitbreaker"
	"crewsignal/pkg/push/types"
)

// BreakerClient guards a push client with a circuit breaker, so a
// sustained provider outage stops producing doomed outbound calls.
type BreakerClient struct {
	inner   Client
	breaker *circuitbreaker.Breaker
}

func NewBreakerClient(inner Client, breaker *circuitbreaker.Breaker) *BreakerClient {
	return &BreakerClient{inner: inner, breaker: breaker}
}

func (c *BreakerClient) SendBatch(ctx context.Context, messages []types.Message) ([]types.Ticket, error) {
	var tickets []types.Ticket
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var sendErr error
		tickets, sendErr = c.inner.SendBatch(ctx, messages)
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
