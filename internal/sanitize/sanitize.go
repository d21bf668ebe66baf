// Package sanitize holds the HTML policy applied to every stored content body.
package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// classes the importer and the placeholder markers emit.
var allowedClasses = regexp.MustCompile(`^(text-center|placeholder|translation-error)$`)

// Policy returns the UGC policy extended with the few attributes archive content uses.
// UGCPolicy allows basic formatting like links, lists and emphasis while stripping
// scripts and event handlers.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(allowedClasses).Globally()
	p.AllowAttrs("dir").Matching(regexp.MustCompile(`^(rtl|ltr|auto)$`)).Globally()
	return p
}
