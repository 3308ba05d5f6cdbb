package domain

import "regexp"

// headingPattern finds a level-1 heading at the start of any line. Lines may
// end in \n, \r, U+2028 or U+2029, matching how the webview splits text.
var headingPattern = regexp.MustCompile(`(?im)(?:^|[\r\x{2028}\x{2029}])# ([^\n\r\x{2028}\x{2029}]*)`)

// DeriveTitle returns the text of the first "# " heading line in body, or ""
// when there is none. Trailing whitespace on the heading line is kept.
func DeriveTitle(body string) string {
	if body == "" {
		return ""
	}
	m := headingPattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}
