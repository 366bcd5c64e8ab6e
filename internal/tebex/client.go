package tebex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"plus-api/pkg/uid"

	"github.com/google/uuid"
)

// DefaultPluginURL is the plugin API base URL.
const DefaultPluginURL = "https://plugin.tebex.io"

const userAgent = "plus-api (+https://github.com/plus-api)"

// ActivePackage is one active purchase returned by the plugin API.
type ActivePackage struct {
	TransactionID string      `json:"txn_id"`
	Date          time.Time   `json:"date"`
	Quantity      int         `json:"quantity"`
	Package       PackageInfo `json:"package"`
}

type PackageInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StatusError is returned for non-2xx plugin API responses other than 404.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plugin API returned %d: %s", e.StatusCode, e.Body)
}

// PluginClient queries the plugin API with a game server secret.
type PluginClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewPluginClient creates a plugin API client. An empty baseURL uses DefaultPluginURL.
func NewPluginClient(baseURL, secret string, timeout time.Duration) *PluginClient {
	if baseURL == "" {
		baseURL = DefaultPluginURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PluginClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ActivePackages returns every active package of a player, optionally
// filtered to a single package. A 404 for the player means no purchases.
func (c *PluginClient) ActivePackages(ctx context.Context, player uuid.UUID, packageID *int64) ([]ActivePackage, error) {
	endpoint := fmt.Sprintf("%s/player/%s/packages", c.baseURL, uid.Simple(player))
	if packageID != nil {
		endpoint += "?" + url.Values{"package": {strconv.FormatInt(*packageID, 10)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Tebex-Secret", c.secret)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active packages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return []ActivePackage{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var packages []ActivePackage
	if err := json.NewDecoder(resp.Body).Decode(&packages); err != nil {
		return nil, fmt.Errorf("failed to decode active packages: %w", err)
	}
	if packages == nil {
		packages = []ActivePackage{}
	}
	return packages, nil
}
