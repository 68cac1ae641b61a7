package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/f-sync/uiflow/internal/model"
)

const (
	testCasePathFormat     = "/test-cases/%s"
	testCasesByModulesPath = "/test-cases"
	defaultHTTPTimeout     = 15 * time.Second
	defaultDialTimeout     = 5 * time.Second
	maxResponseBodyBytes   = 4 * 1024 * 1024
)

// HTTPClientConfig customizes an HTTPClient instance.
type HTTPClientConfig struct {
	BaseURL string
	Client  *http.Client
}

// HTTPClient is the production Catalog implementation: it calls out to
// the external test-catalog service and collapses concurrent duplicate
// FetchTestCase calls for the same id via singleflight, the way the
// teacher's handle resolver collapses duplicate lookups.
type HTTPClient struct {
	client      *http.Client
	baseURL     *url.URL
	flightGroup singleflight.Group
}

// NewHTTPClient constructs an HTTPClient.
func NewHTTPClient(configuration HTTPClientConfig) (*HTTPClient, error) {
	if strings.TrimSpace(configuration.BaseURL) == "" {
		return nil, fmt.Errorf("catalog: base URL is required")
	}
	parsedBaseURL, err := url.Parse(configuration.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse base url: %w", err)
	}

	httpClient := configuration.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout: defaultDialTimeout,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConns:        100,
				MaxConnsPerHost:     100,
			},
		}
	}

	return &HTTPClient{client: httpClient, baseURL: parsedBaseURL}, nil
}

// FetchTestCase implements Client.
func (c *HTTPClient) FetchTestCase(ctx context.Context, id string) (*model.TestCase, error) {
	result, err, _ := c.flightGroup.Do(id, func() (any, error) {
		return c.fetchTestCase(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	testCase, _ := result.(*model.TestCase)
	return testCase, nil
}

func (c *HTTPClient) fetchTestCase(ctx context.Context, id string) (*model.TestCase, error) {
	requestURL := c.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf(testCasePathFormat, id)}).String()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog: unexpected status %d fetching test case %s", response.StatusCode, id)
	}

	var testCase model.TestCase
	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBodyBytes)).Decode(&testCase); err != nil {
		return nil, fmt.Errorf("catalog: decode test case: %w", err)
	}
	return &testCase, nil
}

// FetchTestCasesByModuleIDs implements Client.
func (c *HTTPClient) FetchTestCasesByModuleIDs(ctx context.Context, filter Filter) ([]model.TestCase, error) {
	requestURL := c.baseURL.ResolveReference(&url.URL{Path: testCasesByModulesPath})
	query := requestURL.Query()
	for _, moduleID := range filter.ModuleIDs {
		query.Add("moduleId", moduleID)
	}
	if filter.UserID != "" {
		query.Set("userId", filter.UserID)
	}
	if filter.ProjectID != "" {
		query.Set("projectId", filter.ProjectID)
	}
	requestURL.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return nil, err
	}

	response, err := c.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog: unexpected status %d fetching module test cases", response.StatusCode)
	}

	var testCases []model.TestCase
	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBodyBytes)).Decode(&testCases); err != nil {
		return nil, fmt.Errorf("catalog: decode test cases: %w", err)
	}
	return testCases, nil
}
