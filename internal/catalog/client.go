// Package catalog fetches the hosted index of Pictor plugins.
//
// The index serves two endpoints Plugdeck cares about: a summary listing of
// every published plugin, and a mapping from PyPI names to their conda-forge
// package names for environments that install with conda.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Plugin is one entry from the plugin index summary listing.
type Plugin struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Summary     string `json:"summary"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	License     string `json:"license"`
	HomePage    string `json:"home_page"`
}

// Client talks to the plugin index API.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewClient creates a catalog client for the given index URL.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		client:    &http.Client{},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// SetEndpoint overrides the index base URL. Used by tests.
func (c *Client) SetEndpoint(endpoint string) {
	c.baseURL = endpoint
}

// Plugins returns the summary listing of all published plugins.
func (c *Client) Plugins(ctx context.Context) ([]Plugin, error) {
	var plugins []Plugin
	if err := c.getJSON(ctx, "/api/extended_summary", &plugins); err != nil {
		return nil, err
	}
	return plugins, nil
}

// CondaNames returns the mapping from PyPI package names to their
// conda-forge equivalents. Plugins absent from the map are not packaged
// for conda.
func (c *Client) CondaNames(ctx context.Context) (map[string]string, error) {
	var names map[string]string
	if err := c.getJSON(ctx, "/api/conda", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// PluginVersions returns the published versions of a single plugin, newest
// first.
func (c *Client) PluginVersions(ctx context.Context, name string) ([]string, error) {
	var versions []string
	if err := c.getJSON(ctx, "/api/versions/"+name, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("plugin index not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("plugin index returned status %d but failed to read body: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("plugin index error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode plugin index response: %w", err)
	}
	return nil
}
