package arxiv

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

// ErrInvalidID is returned when input holds no recognizable arXiv identifier.
var ErrInvalidID = errors.New("invalid arXiv ID")

var (
	// 2401.12345, 2401.12345v2, hep-th/9901001, math.GT/0309136v1
	idRe    = regexp.MustCompile(`^(?:\d{4}\.\d{4,5}|[a-z][a-z\-]*(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?$`)
	urlRe   = xurls.Strict()
	idPaths = []string{"/abs/", "/pdf/", "/html/"}
)

// NormalizeID extracts the arXiv identifier from a bare ID or an arxiv.org URL.
func NormalizeID(input string) (string, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "arXiv:")
	if idRe.MatchString(s) {
		return s, nil
	}
	for _, raw := range urlRe.FindAllString(s, -1) {
		if id, ok := idFromURL(raw); ok {
			return id, nil
		}
	}
	return "", ErrInvalidID
}

func idFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "arxiv.org" && !strings.HasSuffix(host, ".arxiv.org") {
		return "", false
	}
	for _, prefix := range idPaths {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			id := strings.TrimSuffix(strings.TrimSuffix(rest, "/"), ".pdf")
			if idRe.MatchString(id) {
				return id, true
			}
		}
	}
	return "", false
}
