package multas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "multasync/internal/errors"
)

// Client is the municipal citation API consumed by the capture flow and
// the sync engine.
type Client interface {
	CreateCitation(ctx context.Context, req *CreateCitationRequest) (*CreateCitationResponse, error)
	GetCitationByFolio(ctx context.Context, folio string) (*CitationRecord, error)
	CreateTowRequest(ctx context.Context, req *CreateTowRequestRequest) (*CreateTowRequestResponse, error)
	Ping(ctx context.Context) error
}

type apiClient struct {
	baseURL string
	client  *http.Client
	token   string
}

// ClientConfig configures the API client. Timeouts are owned by the
// caller's context, not by the underlying http.Client, so per-call
// deadlines (5 s probe, 60 s submit) stay in one place.
type ClientConfig struct {
	BaseURL string
	Token   string
}

func NewClient(cfg ClientConfig) Client {
	return &apiClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
		token:   cfg.Token,
	}
}

func (c *apiClient) CreateCitation(ctx context.Context, req *CreateCitationRequest) (*CreateCitationResponse, error) {
	var result CreateCitationResponse
	if err := c.postJSON(ctx, "multas", "/api/multas", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) GetCitationByFolio(ctx context.Context, folio string) (*CitationRecord, error) {
	endpoint := "/api/multas/folio/" + folio

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("citation", folio)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewAPIError("multas", endpoint, resp.StatusCode,
			fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	var record CitationRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &record, nil
}

func (c *apiClient) CreateTowRequest(ctx context.Context, req *CreateTowRequestRequest) (*CreateTowRequestResponse, error) {
	var result CreateTowRequestResponse
	if err := c.postJSON(ctx, "gruas", "/api/solicitudes-grua", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping is the liveness probe used by the connectivity oracle fallback.
// Any 2xx from the API root counts as reachable.
func (c *apiClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (c *apiClient) postJSON(ctx context.Context, service, endpoint string, payload, result interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return apperrors.NewAPIError(service, endpoint, resp.StatusCode,
				fmt.Errorf("request failed with status %d", resp.StatusCode))
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apperrors.NewAPIError(service, endpoint, resp.StatusCode,
			fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	return nil
}

func (c *apiClient) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
