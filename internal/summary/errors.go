package summary

import (
	"net/http"
	"strings"
)

// Kind classifies summarization failures for end users.
type Kind int

const (
	GenericFailure Kind = iota
	InvalidCredential
	QuotaExceeded
)

// Substrings are matched case-insensitively against the error message.
var (
	credentialMarkers = []string{
		"api key not valid",
		"api_key_invalid",
		"incorrect api key",
		"invalid api key",
		"invalid x-api-key",
	}
	quotaMarkers = []string{
		"quota",
		"resource_exhausted",
		"rate limit",
	}
)

// Classify inspects err's message; anything unrecognized is GenericFailure.
func Classify(err error) Kind {
	if err == nil {
		return GenericFailure
	}
	msg := strings.ToLower(err.Error())
	for _, m := range credentialMarkers {
		if strings.Contains(msg, m) {
			return InvalidCredential
		}
	}
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return QuotaExceeded
		}
	}
	return GenericFailure
}

func (k Kind) String() string {
	switch k {
	case InvalidCredential:
		return "invalid_credential"
	case QuotaExceeded:
		return "quota_exceeded"
	default:
		return "generic_failure"
	}
}

// Message is the text shown to the user.
func (k Kind) Message() string {
	switch k {
	case InvalidCredential:
		return "The API key is invalid. Check that a correct API key is configured."
	case QuotaExceeded:
		return "The API usage limit was exceeded. Please wait a while and try again."
	default:
		return "An error occurred while summarizing."
	}
}

// HTTPStatus maps the kind onto a gateway response code. Credentials are
// server-side configuration, so a rejected key is an upstream failure.
func (k Kind) HTTPStatus() int {
	switch k {
	case QuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// Retryable reports whether repeating the request could succeed.
func (k Kind) Retryable() bool {
	return k == GenericFailure
}
