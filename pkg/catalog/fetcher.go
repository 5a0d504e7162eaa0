// Package catalog retrieves the published application and Graph permission
// documents.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/praetorian-inc/msinfo/version"
)

const (
	baseURL = "https://raw.githubusercontent.com/merill/microsoft-info/main/_info/"

	DefaultApplicationsURL           = baseURL + "MicrosoftApps.json"
	DefaultApplicationPermissionsURL = baseURL + "GraphAppRoles.json"
	DefaultDelegatedPermissionsURL   = baseURL + "GraphDelegateRoles.json"
)

// Endpoints are the three catalog documents.
type Endpoints struct {
	Applications           string
	ApplicationPermissions string
	DelegatedPermissions   string
}

// DefaultEndpoints points at the upstream publication.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Applications:           DefaultApplicationsURL,
		ApplicationPermissions: DefaultApplicationPermissionsURL,
		DelegatedPermissions:   DefaultDelegatedPermissionsURL,
	}
}

// FetcherOptions tunes the HTTP pipeline.
type FetcherOptions struct {
	// Transport overrides the HTTP client, mainly for tests.
	Transport policy.Transporter
	// Retry controls how transient failures (408, 429, 5xx) are retried.
	Retry policy.RetryOptions
	// Timeout bounds a single document fetch, including retries.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Fetcher performs GET requests for JSON documents.
type Fetcher struct {
	pipeline runtime.Pipeline
	timeout  time.Duration
	logger   *slog.Logger
}

func NewFetcher(opts *FetcherOptions) *Fetcher {
	if opts == nil {
		opts = &FetcherOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := &policy.ClientOptions{
		Transport: opts.Transport,
		Retry:     opts.Retry,
	}

	return &Fetcher{
		pipeline: runtime.NewPipeline("msinfo", version.Version, runtime.PipelineOptions{}, clientOpts),
		timeout:  opts.Timeout,
		logger:   logger,
	}
}

// fetchJSON decodes the JSON array at url. On any failure the returned slice
// is nil so callers never see a partially populated collection.
func fetchJSON[T any](ctx context.Context, f *Fetcher, url string) ([]T, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := runtime.NewRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Raw().Header.Set("Accept", "application/json")

	f.logger.Debug("Fetching catalog document", "url", url)
	resp, err := f.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, runtime.NewResponseError(resp))
	}

	var records []T
	if err := runtime.UnmarshalAsJSON(resp, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	f.logger.Debug("Fetched catalog document", "url", url, "count", len(records))
	return records, nil
}
