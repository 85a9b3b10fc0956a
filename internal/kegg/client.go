// Package kegg provides a client for the KEGG REST API and gene ID
// mapping onto KEGG gene identifiers.
package kegg

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public KEGG REST endpoint.
const DefaultBaseURL = "https://rest.kegg.jp"

// requestDelay paces requests to respect KEGG rate limits.
const requestDelay = 350 * time.Millisecond

// Client is a thin client over the KEGG REST interface. Responses are
// plain-text TSV. A Client is safe for concurrent use; the pacing
// state is shared so concurrent callers honor one request rate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     *zap.Logger

	delay time.Duration // fixed after construction

	mu       sync.Mutex // serializes pacing
	lastCall time.Time
}

// NewClient creates a KEGG REST client against the public endpoint.
func NewClient() *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 3,
		delay:      requestDelay,
		logger:     zap.NewNop(),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint.
// Used by tests against a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.delay = 0
	return c
}

// SetLogger sets the logger for warning messages.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// pace blocks until the request delay since the previous call has
// elapsed and stamps the call time. Holding the lock through the wait
// serializes concurrent callers, so the rate limit holds across
// goroutines sharing the client.
func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delay > 0 {
		if wait := c.delay - time.Since(c.lastCall); wait > 0 {
			time.Sleep(wait)
		}
	}
	c.lastCall = time.Now()
}

// get fetches an endpoint with rate limiting and bounded retries.
// A 403 pauses 5s before retrying; transport errors pause 2s.
func (c *Client) get(endpoint string) (string, error) {
	url := c.baseURL + "/" + endpoint

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		c.pace()

		resp, err := c.httpClient.Get(url)
		if err != nil {
			lastErr = err
			c.logger.Warn("KEGG request failed", zap.String("endpoint", endpoint), zap.Error(err))
			if c.delay > 0 {
				time.Sleep(2 * time.Second)
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK && readErr == nil:
			return string(body), nil
		case resp.StatusCode == http.StatusForbidden:
			lastErr = fmt.Errorf("KEGG rate limited (403)")
			c.logger.Warn("KEGG rate limited, backing off", zap.String("endpoint", endpoint))
			if c.delay > 0 {
				time.Sleep(5 * time.Second)
			}
		default:
			if readErr != nil {
				lastErr = readErr
			} else {
				lastErr = fmt.Errorf("KEGG error %d", resp.StatusCode)
			}
		}
	}

	return "", fmt.Errorf("KEGG request %s: %w", endpoint, lastErr)
}

// ListGenes fetches all genes for an organism: gene ID (organism prefix
// stripped) to description. The description is the last tab field of
// each line, e.g. "thrA; bifunctional aspartokinase I".
func (c *Client) ListGenes(orgCode string) (map[string]string, error) {
	text, err := c.get("list/" + orgCode)
	if err != nil {
		return nil, err
	}
	return ParseGeneList(text, orgCode), nil
}

// ListPathways fetches the pathway definitions for an organism: pathway
// ID to name, with the trailing " - organism" suffix removed.
func (c *Client) ListPathways(orgCode string) (map[string]string, error) {
	text, err := c.get("list/pathway/" + orgCode)
	if err != nil {
		return nil, err
	}
	return ParsePathwayList(text), nil
}

// LinkPathways fetches gene to pathway associations for an organism.
func (c *Client) LinkPathways(orgCode string) (map[string][]string, error) {
	text, err := c.get("link/pathway/" + orgCode)
	if err != nil {
		return nil, err
	}
	return ParseLinks(text, orgCode+":", "path:"), nil
}

// LinkCOGs fetches gene to COG entry associations for an organism. Not
// every organism has COG links; an empty map is a valid response.
func (c *Client) LinkCOGs(orgCode string) (map[string][]string, error) {
	text, err := c.get("link/cog/" + orgCode)
	if err != nil {
		return nil, err
	}
	return ParseLinks(text, orgCode+":", "cog:"), nil
}

// Convert queries the KEGG conv endpoint, translating identifiers
// between databases, e.g. conv/eco/ncbi-geneid.
func (c *Client) Convert(target, source string) (map[string]string, error) {
	text, err := c.get("conv/" + target + "/" + source)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) >= 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out, nil
}

// ParseGeneList parses a KEGG list/{org} response.
// Line format: org:gene_id\tCDS\tstart..end\tdescription (the column
// count varies; the description is always the last field).
func ParseGeneList(text, orgCode string) map[string]string {
	genes := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		geneID := strings.TrimPrefix(parts[0], orgCode+":")
		genes[geneID] = strings.TrimSpace(parts[len(parts)-1])
	}
	return genes
}

// ParsePathwayList parses a KEGG list/pathway/{org} response.
func ParsePathwayList(text string) map[string]string {
	pathways := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) < 2 {
			continue
		}
		id := strings.TrimPrefix(parts[0], "path:")
		// "Glycolysis / Gluconeogenesis - Escherichia coli K-12" ->
		// pathway name without the organism suffix
		name := strings.TrimSpace(strings.SplitN(parts[1], " - ", 2)[0])
		pathways[id] = name
	}
	return pathways
}

// ParseLinks parses a KEGG link response into a one-to-many mapping,
// stripping the given prefixes from each column. Repeated lines yield
// one entry, so downstream cache inserts keyed on the pair stay valid.
func ParseLinks(text, fromPrefix, toPrefix string) map[string][]string {
	links := make(map[string][]string)
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		from := strings.TrimPrefix(parts[0], fromPrefix)
		to := strings.TrimPrefix(parts[1], toPrefix)
		pair := from + "\t" + to
		if seen[pair] {
			continue
		}
		seen[pair] = true
		links[from] = append(links[from], to)
	}
	return links
}
