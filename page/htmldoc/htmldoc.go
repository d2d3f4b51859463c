// Package htmldoc exposes the audio elements of a static HTML page to the
// page controller.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/K3das/orange-scribe/page"
	"github.com/K3das/orange-scribe/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxPageSize bounds how much of a page is read before parsing.
const MaxPageSize = 1024 * 1024 * 8

// CurrentSrcAttr stands in for the player's currentSrc, which only exists
// at runtime.
const CurrentSrcAttr = "data-current-src"

type Audio struct {
	src        string
	currentSrc string
	sourceSrc  string
	mimeType   string
}

func (a *Audio) Src() string        { return a.src }
func (a *Audio) CurrentSrc() string { return a.currentSrc }
func (a *Audio) SourceSrc() string  { return a.sourceSrc }
func (a *Audio) Type() string       { return a.mimeType }

type Document struct {
	audios []page.AudioElement
}

var _ page.Document = (*Document)(nil)

func (d *Document) Audios(_ context.Context) ([]page.AudioElement, error) {
	return d.audios, nil
}

// Parse reads an HTML page located at pageURL.
func Parse(r io.Reader, pageURL *url.URL) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	base := pageURL
	if href, ok := findBaseHref(root); ok {
		if resolved, err := pageURL.Parse(href); err == nil {
			base = resolved
		}
	}

	d := &Document{}
	for n := range root.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Audio {
			continue
		}
		d.audios = append(d.audios, &Audio{
			src:        resolveAttr(base, n, "src"),
			currentSrc: resolveAttr(base, n, CurrentSrcAttr),
			sourceSrc:  firstSourceSrc(base, n),
			mimeType:   strings.TrimSpace(attr(n, "type")),
		})
	}

	return d, nil
}

// Fetch downloads and parses the page at rawURL.
func Fetch(ctx context.Context, client *http.Client, rawURL string) (*Document, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad http status: %s", resp.Status)
	}

	body, err := utils.ReadAllLimit(resp.Body, MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	// redirects move the base for relative sources
	return Parse(bytes.NewReader(body), resp.Request.URL)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// resolveAttr returns the attribute as an absolute URL, or "" when it is
// missing or blank.
func resolveAttr(base *url.URL, n *html.Node, key string) string {
	value := strings.TrimSpace(attr(n, key))
	if value == "" {
		return ""
	}
	resolved, err := base.Parse(value)
	if err != nil {
		return value
	}
	return resolved.String()
}

func firstSourceSrc(base *url.URL, audio *html.Node) string {
	for n := range audio.Descendants() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Source {
			return resolveAttr(base, n, "src")
		}
	}
	return ""
}

func findBaseHref(root *html.Node) (string, bool) {
	for n := range root.Descendants() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Base {
			if href := strings.TrimSpace(attr(n, "href")); href != "" {
				return href, true
			}
		}
	}
	return "", false
}
