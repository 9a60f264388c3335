package redaction

import (
	"regexp"
)

// SensitivePatterns contains regex patterns for credential material that
// must never reach logs, error messages, or terminal output. The drive
// backend handles service-account keys and OAuth tokens, and remote
// errors can echo request fragments back, so any diagnostic derived from
// a request or response body goes through Scrub first.
var SensitivePatterns = []string{
	`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`, // PEM private key blocks
	`-----BEGIN [A-Z ]*PRIVATE KEY-----`,                                        // truncated key material
	`"private_key"\s*:\s*"[^"]*"`,                                               // service-account JSON key field
	`ya29\.[0-9A-Za-z_-]+`,                                                      // Google OAuth2 access tokens
	`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+[a-zA-Z0-9_.-]*`,                       // JWTs, including signed assertions
	`(?i)(?:assertion|access_token|refresh_token|client_secret)=[^&\s"]+`,       // credential request parameters
}

// compiled holds pre-compiled versions of SensitivePatterns.
var compiled []*regexp.Regexp

func init() {
	compiled = make([]*regexp.Regexp, 0, len(SensitivePatterns))
	for _, p := range SensitivePatterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
}

// Scrub replaces credential material in text with a placeholder.
func Scrub(text string) string {
	for _, re := range compiled {
		text = re.ReplaceAllString(text, "[REDACTED]")
	}

	return text
}
