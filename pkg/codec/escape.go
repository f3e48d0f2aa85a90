package codec

import "strings"

var pyEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// pyString renders s as a double-quoted Python string literal.
func pyString(s string) string {
	return `"` + pyEscaper.Replace(s) + `"`
}

var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// jsString renders s as a single-quoted JavaScript string literal.
func jsString(s string) string {
	return `'` + jsEscaper.Replace(s) + `'`
}
