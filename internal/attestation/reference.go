// Package attestation parses public post references and fetches their text.
package attestation

import (
	"errors"
	"regexp"
)

// ErrInvalidReference is returned when a reference carries no post id.
var ErrInvalidReference = errors.New("reference does not contain a post id")

// postIDPattern matches the numeric id after a "status/" path segment,
// e.g. https://x.com/someone/status/1790000000000000000.
var postIDPattern = regexp.MustCompile(`status/(\d+)`)

// ExtractPostID returns the numeric post id embedded in reference.
func ExtractPostID(reference string) (string, error) {
	m := postIDPattern.FindStringSubmatch(reference)
	if m == nil {
		return "", ErrInvalidReference
	}
	return m[1], nil
}
