package geoserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go-reports/internal/config"
	"go-reports/internal/security"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// StatusError reports a non-2xx answer from the map server. Handlers
// translate it to a 502 for the API caller.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geoserver returned %d for %s", e.StatusCode, e.URL)
}

// Client talks to the map server's REST API with the privileged service
// account. Calls are synchronous with no retry; a failed call fails the
// request that triggered it.
type Client struct {
	baseURL    string
	username   string
	roles      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.GeoserverURL,
		username:   cfg.GeoserverUser,
		roles:      cfg.GeoserverRoles,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Sec-Username", c.username)
	req.Header.Set("Sec-Roles", c.roles)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoserver request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

type layersDocument struct {
	Layers struct {
		Layer []struct {
			Name string `json:"name"`
		} `json:"layer"`
	} `json:"layers"`
}

// GetLayers fetches the full layer list using the privileged service
// account.
func (c *Client) GetLayers(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, "/rest/layers.json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc layersDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode layers document: %w", err)
	}

	names := make([]string, 0, len(doc.Layers.Layer))
	for _, l := range doc.Layers.Layer {
		names = append(names, l.Name)
	}
	return names, nil
}

// GetLayersACL fetches the layer ACL document. The document is a flat JSON
// object whose key order carries rule precedence, so it is decoded through
// the token stream instead of into a map.
func (c *Client) GetLayersACL(ctx context.Context) (security.RuleSet, error) {
	resp, err := c.get(ctx, "/rest/acl/layers.json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeRules(json.NewDecoder(resp.Body), c.logger)
}

func decodeRules(dec *json.Decoder, logger *zap.Logger) (security.RuleSet, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode ACL document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode ACL document: expected object, got %v", tok)
	}

	var rules security.RuleSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode ACL document: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode ACL document: non-string key %v", keyTok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode ACL entry %q: %w", key, err)
		}

		rule, err := security.ParseRule(key, value)
		if err != nil {
			// Entries we don't understand must not break authorization
			// for the rest of the document.
			logger.Warn("skipping unparseable ACL rule", zap.String("key", key), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode ACL document: %w", err)
	}
	return rules, nil
}
