package restyutil

import (
	"net/http"
	"net/url"
	"strings"
)

var sensitiveFormKeys = []string{"password", "csrf_token", "logintoken"}

// RedactForm masks credential fields of an urlencoded form body, anything
// that is not a form is returned unchanged.
func RedactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil || len(values) == 0 {
		return body
	}
	redacted := false
	for _, key := range sensitiveFormKeys {
		if values.Has(key) {
			values.Set(key, "[redacted]")
			redacted = true
		}
	}
	if !redacted {
		return body
	}
	return values.Encode()
}

func SensitiveHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Cookie", "Set-Cookie", "Authorization":
		return true
	}
	return strings.HasPrefix(http.CanonicalHeaderKey(name), "X-Csrf")
}
