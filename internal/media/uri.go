package media

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/noor/internal/apperr"
)

const uriPrefix = "media://images/"

// URI returns the content URI of an indexed image.
func URI(id int64) string {
	return uriPrefix + strconv.FormatInt(id, 10)
}

// ParseURI extracts the index id from a media:// URI.
func ParseURI(uri string) (int64, error) {
	rest, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok {
		return 0, fmt.Errorf("media: not a media uri %q: %w", uri, apperr.ErrInvalidInput)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("media: bad image id in %q: %w", uri, apperr.ErrInvalidInput)
	}
	return id, nil
}

// filePath returns the local path of a file:// URI.
func filePath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("media: bad file uri %q: %w", uri, apperr.ErrInvalidInput)
	}
	return u.Path, nil
}
