package parsers

import (
	"strings"

	"github.com/people-agent/server/internal/agent/model"
)

const maxReplyLen = 4 * 1024

// ParseIntents turns a classifier reply into category tokens: lower-cased,
// split on commas, trimmed. Quotes and a trailing period are stripped since
// models like to echo the examples verbatim.
func ParseIntents(reply string) []string {
	if len(reply) > maxReplyLen {
		reply = reply[:maxReplyLen]
	}
	reply = strings.ToLower(strings.TrimSpace(reply))
	if reply == "" {
		return nil
	}

	var tokens []string
	for _, part := range strings.Split(reply, ",") {
		tok := strings.TrimSpace(part)
		tok = strings.TrimSuffix(tok, ".")
		tok = strings.Trim(tok, `"'`+"`")
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// KindsFromTokens keeps the tokens naming a fetchable kind, in first-seen
// order. Unknown tokens are ignored and duplicates collapse.
func KindsFromTokens(tokens []string) []model.ResourceKind {
	seen := make(map[model.ResourceKind]bool, len(tokens))
	var kinds []model.ResourceKind
	for _, tok := range tokens {
		kind, ok := model.ParseResourceKind(tok)
		if !ok || seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds
}
