package visits

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/types"
)

// MediaClient uploads visit photos to the media storage sidecar
type MediaClient struct {
	client *resty.Client
	logger *logger.Logger
}

type uploadResponse struct {
	URL string `json:"url"`
}

// NewMediaClient creates a new media sidecar client
func NewMediaClient(cfg *config.MediaConfig, log *logger.Logger) *MediaClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &MediaClient{
		client: client,
		logger: log,
	}
}

// UploadPhoto uploads an image and returns its stored URL. Any failure is
// surfaced as an external service error so callers abort the transition.
func (c *MediaClient) UploadPhoto(ctx context.Context, kind string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", types.NewValidationError(types.ErrCodeValidationFailed, "Photo is required", nil)
	}

	fileName := fmt.Sprintf("%s-%s.jpg", kind, uuid.New().String())

	var result uploadResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(data)).
		SetFormData(map[string]string{"kind": kind}).
		SetResult(&result).
		Post("/api/v1/media")

	if err != nil {
		return "", types.NewExternalError(types.ErrCodeExternalError, "Media upload failed", err)
	}
	if resp.IsError() {
		return "", types.NewExternalError(types.ErrCodeExternalError,
			fmt.Sprintf("Media upload failed with status %d", resp.StatusCode()), nil)
	}
	if result.URL == "" {
		return "", types.NewExternalError(types.ErrCodeExternalError, "Media upload returned no URL", nil)
	}

	c.logger.Infof("Uploaded %s photo: %s", kind, result.URL)
	return result.URL, nil
}
