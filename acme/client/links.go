package client

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// link is one entry of an RFC 8288 Link header.
type link struct {
	target string
	rels   []string
}

// parseLinks parses Link header values of the form
// `<https://example.com/cert/1/1>;rel="alternate", <...>;rel="up"`.
// Entries without a <target> are skipped.
func parseLinks(values []string) []link {
	var links []link
	for _, value := range values {
		for _, entry := range splitLinkEntries(value) {
			entry = strings.TrimSpace(entry)
			if !strings.HasPrefix(entry, "<") {
				continue
			}
			end := strings.Index(entry, ">")
			if end < 0 {
				continue
			}
			l := link{target: entry[1:end]}
			for _, param := range strings.Split(entry[end+1:], ";") {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
					continue
				}
				val = strings.Trim(strings.TrimSpace(val), `"`)
				l.rels = append(l.rels, strings.Fields(strings.ToLower(val))...)
			}
			links = append(links, l)
		}
	}
	return links
}

// splitLinkEntries splits a header value on the commas that separate link
// entries, ignoring commas inside <targets> or quoted strings.
func splitLinkEntries(value string) []string {
	var entries []string
	var inTarget, inQuote bool
	start := 0
	for i, r := range value {
		switch {
		case r == '<' && !inQuote:
			inTarget = true
		case r == '>' && !inQuote:
			inTarget = false
		case r == '"' && !inTarget:
			inQuote = !inQuote
		case r == ',' && !inTarget && !inQuote:
			entries = append(entries, value[start:i])
			start = i + 1
		}
	}
	return append(entries, value[start:])
}

// linksByRel returns the targets of the links with the given relation, in
// header order. Relative targets are resolved against base when it is not nil.
func linksByRel(values []string, rel string, base *url.URL) []string {
	matching := lo.Filter(parseLinks(values), func(l link, _ int) bool {
		return lo.Contains(l.rels, rel)
	})
	return lo.Map(matching, func(l link, _ int) string {
		if base == nil {
			return l.target
		}
		ref, err := url.Parse(l.target)
		if err != nil {
			return l.target
		}
		return base.ResolveReference(ref).String()
	})
}
