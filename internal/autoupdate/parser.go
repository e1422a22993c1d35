// Package autoupdate provides version parsing for upstream pages.
package autoupdate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Error variables for parser errors
var (
	// ErrJSONPathNotFound is returned when the JSON path does not exist in the document
	ErrJSONPathNotFound = errors.New("JSON path not found in response")
	// ErrRegexNoMatch is returned when the regex pattern does not match the content
	ErrRegexNoMatch = errors.New("regex pattern did not match")
	// ErrNoVersionFound is returned when no version could be extracted from upstream
	ErrNoVersionFound = errors.New("could not extract version from upstream")
	// ErrInvalidJSONPath is returned when the JSON path syntax is invalid
	ErrInvalidJSONPath = errors.New("invalid JSON path syntax")
	// ErrInvalidRegexPattern is returned when the regex pattern is invalid
	ErrInvalidRegexPattern = errors.New("invalid regex pattern")
	// ErrNoCaptureGroup is returned when the regex pattern has no capture group
	ErrNoCaptureGroup = errors.New("regex pattern must contain at least one capture group")
	// ErrInvalidParserType is returned for an unknown parser name
	ErrInvalidParserType = errors.New("invalid parser type: must be 'json', 'regex' or 'html'")
)

// Parser defines the interface for version extraction from content.
type Parser interface {
	// Parse extracts a version string from the given content.
	Parse(content []byte) (string, error)
}

// JSONParser extracts version using a dotted JSON path with array indexes,
// e.g. "tag_name" or "releases[0].version".
type JSONParser struct {
	Path string
}

// jsonPathToken matches one path element: a field name or an [index]
var jsonPathToken = regexp.MustCompile(`^(?:\.?([^.\[\]]+)|\[(\d+)\])`)

// Parse extracts a version string from JSON content using the configured path.
func (p *JSONParser) Parse(content []byte) (string, error) {
	if p.Path == "" {
		return "", ErrInvalidJSONPath
	}

	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	current := data
	rest := p.Path
	for rest != "" {
		m := jsonPathToken.FindStringSubmatch(rest)
		if m == nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidJSONPath, rest)
		}
		rest = rest[len(m[0]):]

		if m[1] != "" {
			obj, ok := current.(map[string]interface{})
			if !ok {
				return "", fmt.Errorf("%w: expected object at %q", ErrJSONPathNotFound, m[1])
			}
			if current, ok = obj[m[1]]; !ok {
				return "", fmt.Errorf("%w: field %q not found", ErrJSONPathNotFound, m[1])
			}
			continue
		}

		idx, _ := strconv.Atoi(m[2])
		arr, ok := current.([]interface{})
		if !ok || idx >= len(arr) {
			return "", fmt.Errorf("%w: index %d unavailable", ErrJSONPathNotFound, idx)
		}
		current = arr[idx]
	}

	switch v := current.(type) {
	case string:
		if v == "" {
			return "", ErrNoVersionFound
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: value at path is not a string", ErrJSONPathNotFound)
	}
}

// RegexParser extracts the first capture group of a regular expression.
type RegexParser struct {
	re *regexp.Regexp
}

// NewRegexParser compiles pattern and requires at least one capture group.
func NewRegexParser(pattern string) (*RegexParser, error) {
	re, err := compileCapturing(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexParser{re: re}, nil
}

// Parse returns the first capture group of the first match.
func (p *RegexParser) Parse(content []byte) (string, error) {
	m := p.re.FindSubmatch(content)
	if m == nil || len(m[1]) == 0 {
		return "", fmt.Errorf("%w: %s", ErrRegexNoMatch, p.re)
	}
	return string(m[1]), nil
}

// compileCapturing compiles a pattern that must contain a capture group
func compileCapturing(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrInvalidRegexPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegexPattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, ErrNoCaptureGroup
	}
	return re, nil
}

// NewParser creates a body parser from a source definition.
func NewParser(cfg *SourceConfig) (Parser, error) {
	switch cfg.Parser {
	case "json":
		if cfg.Path == "" {
			return nil, ErrInvalidJSONPath
		}
		return &JSONParser{Path: cfg.Path}, nil
	case "regex":
		return NewRegexParser(cfg.Pattern)
	case "html":
		return NewHTMLParser(cfg.Selector, cfg.XPath, cfg.Pattern)
	default:
		return nil, fmt.Errorf("%w: got %q", ErrInvalidParserType, cfg.Parser)
	}
}

// ParseVersion runs the primary parser and, when it fails, the fallback parser
// built from FallbackParser/FallbackPattern over the same content.
func ParseVersion(content []byte, cfg *SourceConfig) (string, error) {
	parser, err := NewParser(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create primary parser: %w", err)
	}

	version, primaryErr := parser.Parse(content)
	if primaryErr == nil {
		return cleanVersion(version, cfg.TrimPrefix), nil
	}

	if cfg.FallbackParser != "" {
		fallback := &SourceConfig{
			Parser:   cfg.FallbackParser,
			Path:     cfg.Path,
			Pattern:  cfg.FallbackPattern,
			Selector: cfg.Selector,
			XPath:    cfg.XPath,
		}
		if fp, err := NewParser(fallback); err == nil {
			if version, err := fp.Parse(content); err == nil {
				return cleanVersion(version, cfg.TrimPrefix), nil
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrNoVersionFound, primaryErr)
}

// cleanVersion trims whitespace and an optional prefix such as "v"
func cleanVersion(version, prefix string) string {
	version = strings.TrimSpace(version)
	if prefix != "" {
		version = strings.TrimPrefix(version, prefix)
	}
	return version
}
