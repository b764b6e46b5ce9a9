// Package normalize builds the canonical text keys used to match tracks by
// their tags.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rainycape/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketed   = regexp.MustCompile(`\(.*?\)|\[.*?\]|\{.*?\}`)
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Key returns the matching key for a free-text tag value.
//
// The value is lower-cased and folded to ASCII, bracketed spans are dropped,
// "&" becomes "and", and every run of other characters collapses to a single
// space. Key is idempotent.
func Key(s string) string {
	if s == "" {
		return ""
	}

	text := fold(strings.ToLower(s))
	text = bracketed.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "&", " and ")
	text = nonAlnumRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// fold strips combining marks after canonical decomposition, then
// transliterates whatever non-ASCII remains.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	for _, r := range stripped {
		if r > unicode.MaxASCII {
			return strings.ToLower(unidecode.Unidecode(stripped))
		}
	}
	return stripped
}

// MetadataKey returns "artist|title|bucket" for grouping by tags, where bucket
// is the duration divided by bucketSeconds and rounded half to even. Tracks
// without an artist, a title or a duration have no key and get "".
// A bucketSeconds below 1 is treated as 1.
func MetadataKey(artist, title string, durationSec float64, hasDuration bool, bucketSeconds int) string {
	a := Key(artist)
	t := Key(title)
	if a == "" || t == "" || !hasDuration {
		return ""
	}
	if bucketSeconds < 1 {
		bucketSeconds = 1
	}
	bucket := int64(math.RoundToEven(durationSec / float64(bucketSeconds)))
	return a + "|" + t + "|" + strconv.FormatInt(bucket, 10)
}
