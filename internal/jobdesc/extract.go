// Package jobdesc extracts a plain-text job description from a PDF file or a
// job-posting URL for use as interview-generation input.
package jobdesc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const (
	fetchTimeout = 10 * time.Second
	maxFetchSize = 2 << 20

	// maxDescriptionLength caps extracted text so a pathological posting
	// cannot blow up the generation prompt.
	maxDescriptionLength = 8000
)

// FromPDF extracts the text content of a PDF file.
func FromPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("reading pdf text from %s: %w", path, err)
	}

	text := normalize(buf.String())
	if text == "" {
		return "", fmt.Errorf("pdf %s contains no extractable text", path)
	}
	return text, nil
}

// FromURL fetches a job posting and strips it down to readable text. Single
// attempt, bounded response size.
func FromURL(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}

	var b strings.Builder
	collectText(doc, &b)
	text := normalize(b.String())
	if text == "" {
		return "", fmt.Errorf("no readable text at %s", url)
	}
	return text, nil
}

// collectText walks the parse tree accumulating visible text nodes.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head", "svg", "iframe":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// normalize collapses whitespace runs and bounds the result length.
func normalize(s string) string {
	text := strings.Join(strings.Fields(s), " ")
	if len(text) > maxDescriptionLength {
		cut := text[:maxDescriptionLength]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		text = cut
	}
	return text
}
