package fallback

import "regexp"

// Outbound text must never leak identifiers or balances to the external
// knowledge service. Everything matching these shapes is replaced before
// the text leaves the process.
var (
	userIDRe    = regexp.MustCompile(`\bUSR\d+\b`)
	accountIDRe = regexp.MustCompile(`\b(?:ACC|MTG|TXN|PAY)\d+\b`)
	familyIDRe  = regexp.MustCompile(`\bFAM\d+\b`)
	amountRe    = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?`)
	dollarsRe   = regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s*(?:dollars?|bucks|usd)\b`)
)

// Sanitize strips account identifiers, user identifiers, and money amounts
// from text bound for the external knowledge service.
func Sanitize(text string) string {
	text = userIDRe.ReplaceAllString(text, "[user]")
	text = accountIDRe.ReplaceAllString(text, "[account]")
	text = familyIDRe.ReplaceAllString(text, "[family]")
	text = amountRe.ReplaceAllString(text, "[amount]")
	text = dollarsRe.ReplaceAllString(text, "[amount]")
	return text
}
