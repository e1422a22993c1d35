// Package autoupdate provides HTML parsing for upstream version pages.
package autoupdate

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Error variables for HTML parser errors
var (
	// ErrInvalidXPath is returned when the XPath expression syntax is invalid
	ErrInvalidXPath = errors.New("invalid XPath expression")
	// ErrNoElementFound is returned when no element matches the selector/xpath
	ErrNoElementFound = errors.New("no element found matching selector")
	// ErrNoSelectorOrXPath is returned when neither selector nor xpath is provided
	ErrNoSelectorOrXPath = errors.New("either selector or xpath must be provided")
)

// HTMLParser extracts version using CSS selector or XPath expression.
// An optional regex narrows the matched text; its first capture group wins,
// otherwise the full match is used.
type HTMLParser struct {
	Selector string
	XPath    string
	regex    *regexp.Regexp
}

// NewHTMLParser creates a new HTMLParser. At least one of selector or xpath must be provided.
func NewHTMLParser(selector, xpath, pattern string) (*HTMLParser, error) {
	if selector == "" && xpath == "" {
		return nil, ErrNoSelectorOrXPath
	}

	p := &HTMLParser{Selector: selector, XPath: xpath}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegexPattern, err)
		}
		p.regex = re
	}
	return p, nil
}

// Parse extracts a version string from HTML content.
// The CSS selector takes precedence over XPath when both are set.
func (p *HTMLParser) Parse(content []byte) (string, error) {
	texts, err := p.matchTexts(content)
	if err != nil {
		return "", err
	}

	// Without a regex the first element is authoritative; with one, the first
	// element whose text matches is used.
	for _, text := range texts {
		if p.regex == nil {
			if v := strings.TrimSpace(text); v != "" {
				return v, nil
			}
			return "", ErrNoVersionFound
		}
		if m := p.regex.FindStringSubmatch(text); m != nil {
			if len(m) > 1 && m[1] != "" {
				return strings.TrimSpace(m[1]), nil
			}
			if m[0] != "" {
				return strings.TrimSpace(m[0]), nil
			}
		}
	}

	return "", fmt.Errorf("%w: pattern %q did not match element text", ErrRegexNoMatch, p.regex)
}

// matchTexts returns the text content of every matching element in document order
func (p *HTMLParser) matchTexts(content []byte) ([]string, error) {
	var texts []string

	if p.Selector != "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML: %w", err)
		}
		doc.Find(p.Selector).Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, s.Text())
		})
		if len(texts) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoElementFound, p.Selector)
		}
		return texts, nil
	}

	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, p.XPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXPath, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElementFound, p.XPath)
	}
	for _, n := range nodes {
		texts = append(texts, htmlquery.InnerText(n))
	}
	return texts, nil
}
