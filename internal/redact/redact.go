// Package redact scrubs credentials and personal data from error strings
// before they are logged.
package redact

import "regexp"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; earlier rules see the raw input.
var rules = []rule{
	// DSNs: keep the scheme and host, drop user and password.
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|smtps?)://[^@\s]+@`), "${1}://[REDACTED_CREDENTIAL]@"},
	{regexp.MustCompile(`eyJ[\w-]+\.eyJ[\w-]+\.[\w-]+`), "[REDACTED_JWT]"},
	// Authorization header values.
	{regexp.MustCompile(`\b(Bearer|Token|Basic) [A-Za-z0-9._~+/=-]{8,}`), "${1} [REDACTED]"},
	{regexp.MustCompile(`(?i)\b(password|passwd|secret)\s*[=:]\s*\S+`), "${1}=[REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
	// API tokens are 40 hex characters.
	{regexp.MustCompile(`\b[0-9a-f]{40}\b`), "[REDACTED_KEY]"},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), "[REDACTED_PATH]"},
	// Statement values.
	{regexp.MustCompile(`(?i)\b(WHERE|VALUES|SET)\b.*$`), "${1} [REDACTED_SQL]"},
}

// String returns input with sensitive fragments replaced by placeholders.
func String(input string) string {
	for _, r := range rules {
		if input == "" {
			break
		}
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}
	return input
}

// Error redacts err.Error(). A nil error gives "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
