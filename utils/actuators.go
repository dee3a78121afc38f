package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ActuatorClient posts tool invocations to the external actuator endpoints
// (/call911, /sendNotification, /door). Each call is fire-and-forget from
// the session's point of view: the caller logs the returned message or the
// error and moves on.
type ActuatorClient struct {
	BaseURL string
	Client  *http.Client
}

func NewActuatorClient(baseURL string) *ActuatorClient {
	return &ActuatorClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type actuatorResponse struct {
	Message string `json:"message"`
}

// Invoke POSTs args as a JSON body to BaseURL+path and returns the
// human-readable message from the acknowledgement.
func (c *ActuatorClient) Invoke(ctx context.Context, path string, args map[string]interface{}) (string, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal actuator payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create actuator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("actuator call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("actuator returned status %d", resp.StatusCode)
	}

	var ack actuatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("failed to decode actuator response: %w", err)
	}

	zap.L().Debug("Actuator acknowledged", zap.String("path", path), zap.String("message", ack.Message))
	return ack.Message, nil
}
