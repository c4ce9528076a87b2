package remote

import (
	"net/http"
)

// RedactedValue replaces credential headers in request previews
const RedactedValue = "[REDACTED]"

// PipedriveTokenHeader carries the CRM token on v2 calls
const PipedriveTokenHeader = "x-api-token"

// PipedriveTokenParam carries the CRM token on v1 calls
const PipedriveTokenParam = "api_token"

var sensitiveHeaders = map[string]bool{
	http.CanonicalHeaderKey(PipedriveTokenHeader): true,
	http.CanonicalHeaderKey(ReonicAuthHeader):     true,
	"Authorization": true,
}

// RedactHeaders returns a copy of headers with credential values replaced
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			v = RedactedValue
		}
		out[k] = v
	}
	return out
}
