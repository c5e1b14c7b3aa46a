package parser

import "strings"

// Metadata holds the token fields scraped from program log lines. Each
// pointer is nil when no log line yielded a plausible value.
type Metadata struct {
	Name   *string
	Symbol *string
	URI    *string
}

const (
	maxNameLen   = 100
	maxSymbolLen = 20
)

// ExtractMetadata scans log lines for "name:", "symbol:" and "uri:" (or
// "metadata:") markers, case-insensitive. The first plausible value wins per
// field. The format is a convention of the target program's logging, not a
// documented interface, so everything here is best-effort.
func ExtractMetadata(logs []string) Metadata {
	var m Metadata
	for _, line := range logs {
		lower := strings.ToLower(line)

		if m.Name == nil {
			if v, ok := valueAfter(line, lower, "name:", textTerminators); ok && len(v) <= maxNameLen {
				m.Name = &v
			}
		}
		if m.Symbol == nil {
			if v, ok := valueAfter(line, lower, "symbol:", textTerminators); ok && len(v) <= maxSymbolLen {
				m.Symbol = &v
			}
		}
		if m.URI == nil {
			if v, ok := valueAfter(line, lower, "uri:", uriTerminators); ok && plausibleURI(v) {
				m.URI = &v
			} else if v, ok := valueAfter(line, lower, "metadata:", uriTerminators); ok && plausibleURI(v) {
				m.URI = &v
			}
		}
	}
	return m
}

// Names and symbols may contain spaces, so they end only at structural
// characters; URIs never contain spaces, so whitespace ends them too.
const (
	textTerminators = ",\"'}"
	uriTerminators  = ",\"'} \t"
)

// valueAfter extracts the value following the marker, ended by the first
// terminator character. The original-case line is sliced so values keep
// their casing while markers match case-insensitively.
func valueAfter(line, lower, marker, terminators string) (string, bool) {
	i := strings.Index(lower, marker)
	if i < 0 {
		return "", false
	}
	rest := strings.TrimLeft(line[i+len(marker):], " \t\"'")

	if j := strings.IndexAny(rest, terminators); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.Trim(rest, " \t\"'")
	if rest == "" {
		return "", false
	}
	return rest, true
}

// plausibleURI accepts the schemes token metadata actually uses.
func plausibleURI(s string) bool {
	for _, prefix := range []string{"http://", "https://", "ipfs://", "ar://"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
