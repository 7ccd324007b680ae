// Package sanitize normalizes user-supplied text before it reaches the
// services. Plain fields (names, titles, emails, search keywords) are
// escaped outright; merchandising copy keeps a small formatting
// whitelist.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// Text strips surrounding whitespace and HTML-escapes the rest.
func Text(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

// Description sanitizes product, coupon and raffle descriptions. Admins
// paste formatted copy into these fields, so basic block and inline
// markup survives while scripts and event handlers never do.
func Description(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	return strings.TrimSpace(getDescriptionPolicy().Sanitize(value))
}

func getDescriptionPolicy() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "b", "i", "code")
		descriptionPolicy = policy
	})

	return descriptionPolicy
}
