package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// formatHeaders writes headers in "Key: Value" lines sorted by key.
func formatHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if SensitiveHeader(k) {
				v = "[redacted]"
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return RedactForm(string(readBody))
}

// formatHttpMessage renders a request/response pair as a plain text dump
// with credentials redacted.
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		formatHeaders(&out, res.Request.RawRequest.Header)
		out.WriteString("\n")
	}
	if body := formatRequestBody(res.Request.RawRequest); body != "" {
		out.WriteString(body)
		out.WriteString("\n\n")
	}

	out.WriteString("---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%d", res.StatusCode())
	if res.RawResponse != nil {
		if location, err := res.RawResponse.Location(); err == nil {
			fmt.Fprintf(&out, " -> %s", location)
		}
	}
	out.WriteString("\n\n")
	formatHeaders(&out, res.Header())
	out.WriteString("\n")
	out.WriteString(res.String())
	return out.String()
}
