package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces credentials in log output.
const RedactedPlaceholder = "[REDACTED]"

// redactionRule rewrites one kind of secret found inside free text, such as
// a provider error body that echoes the request.
type redactionRule struct {
	name    string
	pattern *regexp.Regexp
	replace func(match string) string
}

func placeholder(string) string { return RedactedPlaceholder }

var redactionRules = []redactionRule{
	{"openai key", regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`), placeholder},
	{"google key", regexp.MustCompile(`AIza[A-Za-z0-9_-]{35}`), placeholder},
	{"azure key", regexp.MustCompile(`(?i)\b[a-f0-9]{32}\b`), placeholder},
	{"bearer token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`), placeholder},
	{"assignment", regexp.MustCompile(`(?i)(api[_-]?key|password|secret|access_token)\s*[:=]\s*[^\s,;"']{8,}`), placeholder},
	// image payloads are not secret but would flood the log
	{"data uri", regexp.MustCompile(`data:image/[a-z+.-]+;base64,[A-Za-z0-9+/=]{64,}`), func(m string) string {
		head, _, _ := strings.Cut(m, ",")
		return fmt.Sprintf("%s,[%d base64 chars]", head, len(m)-len(head)-1)
	}},
}

// sensitiveKeyParts mark a field or variable name whose value is always
// replaced, whatever it looks like.
var sensitiveKeyParts = []string{
	"API_KEY",
	"APIKEY",
	"AUTHORIZATION",
	"PASSWORD",
	"SECRET",
	"ACCESS_TOKEN",
	"AUTH_TOKEN",
}

// RedactSensitiveData replaces provider keys, bearer tokens and credential
// assignments in value, and shortens embedded base64 image data URIs.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, rule := range redactionRules {
		value = rule.pattern.ReplaceAllStringFunc(value, rule.replace)
	}
	return value
}

// IsSensitiveField reports whether a field named key must never be logged
// in clear. Matching ignores case and treats '-' like '_' so that header
// names such as "api-key" are caught.
func IsSensitiveField(key string) bool {
	normalized := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	for _, part := range sensitiveKeyParts {
		if strings.Contains(normalized, part) {
			return true
		}
	}
	return false
}
