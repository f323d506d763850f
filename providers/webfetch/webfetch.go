// Package webfetch provides async tools that retrieve a URL and return
// either its markdown rendering or an extracted "readable" article
// body, for scripts that need to pull in external documentation mid
// tool-chain. Both tools run go-readability's article extraction to
// isolate the main content; fetch_url then converts that content to
// GitHub-flavored markdown while readable_text returns the plain text.
package webfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/c360studio/toolbridge/bridge"
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Provider implements bridge.AsyncCaller and bridge.MetadataProvider for
// the web.fetch_url / web.readable_text tool set.
type Provider struct {
	client    *http.Client
	converter *md.Converter
}

// New returns a Provider with a bounded-timeout HTTP client.
func New() *Provider {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Provider{
		client:    &http.Client{Timeout: 20 * time.Second},
		converter: converter,
	}
}

// ListTools returns the two web tool descriptors, reported under their
// unprefixed leaf names; hosts register them under the "web" prefix.
func (p *Provider) ListTools() ([]bridge.ToolDescriptor, error) {
	urlInput := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "URL to fetch"},
		},
		"required": []any{"url"},
	}
	return []bridge.ToolDescriptor{
		{
			Name:        "fetch_url",
			Description: "Fetch a URL and convert its main content to GitHub-flavored markdown",
			Tags:        []string{"web"},
			IsAsync:     true,
			Inputs:      urlInput,
			Outputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    map[string]any{"type": "string"},
					"markdown": map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "readable_text",
			Description: "Fetch a URL and extract its readable article text, discarding navigation and boilerplate",
			Tags:        []string{"web"},
			IsAsync:     true,
			Inputs:      urlInput,
			Outputs: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
					"text":  map[string]any{"type": "string"},
					"byline": map[string]any{"type": "string"},
				},
			},
		},
	}, nil
}

// Call dispatches name ("fetch_url" or "readable_text", as reported by
// ListTools) to the matching handler.
func (p *Provider) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return nil, bridge.NewCallError("url argument is required")
	}

	switch name {
	case "fetch_url":
		return p.fetchMarkdown(ctx, rawURL)
	case "readable_text":
		return p.fetchReadable(ctx, rawURL)
	default:
		return nil, bridge.NewCallError(fmt.Sprintf("unknown tool: %s", name))
	}
}

func (p *Provider) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("invalid url: %s", err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("fetch failed: %s", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, bridge.NewCallError(fmt.Sprintf("fetch failed: status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("read body failed: %s", err))
	}
	return body, nil
}

func (p *Provider) fetchMarkdown(ctx context.Context, rawURL string) (map[string]any, error) {
	body, err := p.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("invalid url: %s", err))
	}

	// Readability isolates the main content; a page it cannot make sense
	// of is converted whole.
	title := ""
	content := string(body)
	if article, rerr := readability.FromReader(bytes.NewReader(body), parsed); rerr == nil {
		title = article.Title
		if article.Content != "" {
			content = article.Content
		}
	}

	markdown, err := p.converter.ConvertString(content)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("markdown conversion failed: %s", err))
	}
	markdown = tidyMarkdown(markdown)
	if title == "" {
		title = extractHTMLTitle(body)
	}
	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	return map[string]any{"title": title, "markdown": markdown}, nil
}

func (p *Provider) fetchReadable(ctx context.Context, rawURL string) (map[string]any, error) {
	body, err := p.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("invalid url: %s", err))
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("readability extraction failed: %s", err))
	}
	return map[string]any{
		"title":  article.Title,
		"text":   article.TextContent,
		"byline": article.Byline,
	}, nil
}

// extractHTMLTitle pulls the <title> text out of a page, for pages
// where readability could not produce one.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// tidyMarkdown normalises converter output: trailing whitespace goes,
// and runs of blank lines collapse to one.
func tidyMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(content)
}

func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
