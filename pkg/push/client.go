package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crewsignal/internal/privacy"
	"crewsignal/pkg/push/types"

	"github.com/sirupsen/logrus"
)

const defaultChunkSize = 100

type Client interface {
	SendBatch(ctx context.Context, messages []types.Message) ([]types.Ticket, error)
}

type HTTPClient struct {
	baseURL   string
	client    *http.Client
	logger    *logrus.Logger
	chunkSize int
}

func NewClient(baseURL string, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, httpClient, nil)
}

func NewClientWithLogger(baseURL string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	return &HTTPClient{
		baseURL:   baseURL,
		client:    httpClient,
		logger:    logger,
		chunkSize: defaultChunkSize,
	}
}

// SendBatch delivers messages through the provider's batch endpoint,
// chunking at the provider's batch limit. Per-message rejections come back
// as error tickets; only transport or whole-batch failures return an error.
func (c *HTTPClient) SendBatch(ctx context.Context, messages []types.Message) ([]types.Ticket, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	tickets := make([]types.Ticket, 0, len(messages))
	for start := 0; start < len(messages); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(messages) {
			end = len(messages)
		}

		chunkTickets, err := c.sendChunk(ctx, messages[start:end])
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, chunkTickets...)
	}

	return tickets, nil
}

func (c *HTTPClient) sendChunk(ctx context.Context, messages []types.Message) ([]types.Ticket, error) {
	jsonData, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push messages: %w", err)
	}

	endpoint := fmt.Sprintf("%s/send", c.baseURL)
	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"count":    len(messages),
	}).Debug("Sending push batch")

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("push API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result types.SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	for i, ticket := range result.Data {
		if ticket.Status == types.TicketStatusError {
			recipient := ""
			if i < len(messages) {
				recipient = privacy.MaskToken(messages[i].To)
			}
			// Partial delivery is acceptable; the rejection is logged and
			// the batch continues.
			c.logger.WithFields(logrus.Fields{
				"recipient": recipient,
				"message":   ticket.Message,
				"details":   ticket.Details,
			}).Warn("Push provider rejected message")
		}
	}

	return result.Data, nil
}
