package search

import (
	"regexp"
	"strings"

	"github.com/meghashyamc/buzee/db/docdb"
)

var (
	segmentPattern = regexp.MustCompile(`"[^"]*"|\S+`)
	smartQuotes    = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "‟", `"`, "«", `"`, "»", `"`)
)

// ParsedQuery is a user query split into its parts. Phrases match exactly, Terms match as
// prefixes and Excluded terms must not match.
type ParsedQuery struct {
	Phrases  []string
	Terms    []string
	Excluded []string
}

func (p ParsedQuery) Empty() bool {
	return len(p.Phrases) == 0 && len(p.Terms) == 0 && len(p.Excluded) == 0
}

func (p ParsedQuery) hasPositive() bool {
	return len(p.Phrases) > 0 || len(p.Terms) > 0
}

// ParseQuery splits a query like `dear "star wars" fan -trek` into phrases, prefix terms
// and excluded terms. Punctuation outside quotes is dropped.
func ParseQuery(raw string) ParsedQuery {
	var parsed ParsedQuery

	for _, segment := range segmentPattern.FindAllString(smartQuotes.Replace(raw), -1) {
		if len(segment) >= 2 && strings.HasPrefix(segment, `"`) && strings.HasSuffix(segment, `"`) {
			phrase := strings.Join(strings.Fields(segment[1:len(segment)-1]), " ")
			if phrase != "" {
				parsed.Phrases = append(parsed.Phrases, phrase)
			}
			continue
		}

		if strings.HasPrefix(segment, "-") {
			parsed.Excluded = append(parsed.Excluded, docdb.Terms(segment[1:])...)
			continue
		}

		parsed.Terms = append(parsed.Terms, docdb.Terms(segment)...)
	}

	return parsed
}

// metadataExpression turns the query into an FTS5 expression for metadata_fts, or "" when
// there is nothing positive to match.
func metadataExpression(parsed ParsedQuery) string {
	if !parsed.hasPositive() {
		return ""
	}

	parts := make([]string, 0, len(parsed.Phrases)+len(parsed.Terms))
	for _, phrase := range parsed.Phrases {
		if terms := docdb.Terms(phrase); len(terms) > 0 {
			parts = append(parts, docdb.Phrase(strings.Join(terms, " ")))
		}
	}
	for _, term := range parsed.Terms {
		parts = append(parts, docdb.Phrase(term)+"*")
	}
	if len(parts) == 0 {
		return ""
	}

	expr := strings.Join(parts, " AND ")
	for _, term := range parsed.Excluded {
		expr += " NOT " + docdb.Phrase(term)
	}
	return expr
}
