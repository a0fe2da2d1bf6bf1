package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxFetchBytes caps the response body returned to the model.
const maxFetchBytes = 50000

// FetchURLTool performs an HTTP GET and returns the (truncated) response body.
type FetchURLTool struct {
	// Client allows injecting a custom HTTP client in tests; nil uses a
	// default client with a 30 second timeout.
	Client *http.Client
}

func (t *FetchURLTool) Name() string { return "fetch_url" }

func (t *FetchURLTool) Description() string {
	return "Fetch a URL via HTTP GET and return the response body, truncated to 50000 bytes."
}

func (t *FetchURLTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "URL to fetch"},
		},
		"required": []string{"url"},
	}
}

func (t *FetchURLTool) Execute(ctx context.Context, args map[string]any, _ string) Result {
	url := stringArg(args, "url")
	if url == "" {
		return Fail("url must not be empty")
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fail("invalid url %q: %v", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Fail("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return Fail("reading response from %s failed: %v", url, err)
	}

	truncated := false
	if len(body) > maxFetchBytes {
		body = body[:maxFetchBytes]
		truncated = true
	}
	if resp.StatusCode >= 400 {
		return Fail("HTTP %d from %s\n%s", resp.StatusCode, url, string(body))
	}

	out := fmt.Sprintf("HTTP %d from %s\n%s", resp.StatusCode, url, string(body))
	if truncated {
		out += "\n... (body truncated)"
	}
	return Ok(out)
}
