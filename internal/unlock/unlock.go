// Package unlock verifies the access key that opens the vault: a date
// only the two people involved would know, accepted in whatever format
// they happen to type it. Every verification passes through the abuse
// guard first, and wrong answers are charged against the lockout window.
package unlock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boveda/internal/guard"
)

var (
	ordinalRe   = regexp.MustCompile(`(\d)(st|nd|rd|th)`)
	separatorRe = regexp.MustCompile(`[\s/\-.,]`)
)

// Normalize lowers, strips ordinal suffixes after digits (1st → 1) and
// removes date separators, so "1st Jan, 2026" and "01/01/2026" compare
// against the same fingerprint space.
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = separatorRe.ReplaceAllString(s, "")
	return s
}

// Fingerprints enumerates the accepted normalized spellings of a date.
func Fingerprints(date time.Time) map[string]struct{} {
	d := date.Day()
	m := int(date.Month())
	y4 := date.Year()
	y2 := y4 % 100

	short := strings.ToLower(date.Format("Jan"))
	full := strings.ToLower(date.Format("January"))

	candidates := []string{
		fmt.Sprintf("%d%s%d", d, short, y4),   // 1jan2026
		fmt.Sprintf("%d%s%02d", d, short, y2), // 1jan26
		fmt.Sprintf("%s%d%d", short, d, y4),   // jan12026
		fmt.Sprintf("%s%d%02d", short, d, y2), // jan126
		fmt.Sprintf("%d%s%d", d, full, y4),    // 1january2026
		fmt.Sprintf("%d%s%02d", d, full, y2),  // 1january26
		fmt.Sprintf("%02d%02d%d", d, m, y4),   // 01012026
		fmt.Sprintf("%02d%02d%02d", d, m, y2), // 010126
		fmt.Sprintf("%d%d%02d", d, m, y2),     // 1126
		fmt.Sprintf("%d%d%d", d, m, y4),       // 112026
	}

	set := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		set[c] = struct{}{}
	}
	return set
}

// Verifier checks unlock attempts against a configured date.
type Verifier struct {
	fingerprints map[string]struct{}
	guard        *guard.Guard
}

// NewVerifier builds a Verifier for the given date, fronted by g.
func NewVerifier(date time.Time, g *guard.Guard) *Verifier {
	return &Verifier{
		fingerprints: Fingerprints(date),
		guard:        g,
	}
}

// Verify checks one attempt. Guard rejections (*guard.TooFastError,
// *guard.RateLimitedError) come back as errors without the attempt being
// evaluated at all. A wrong answer returns (false, nil) and is charged
// against the lockout window. A correct one returns (true, nil) without
// being charged, but it does not reset previously recorded failures.
func (v *Verifier) Verify(ctx context.Context, input string) (bool, error) {
	if err := v.guard.Allow(ctx); err != nil {
		return false, err
	}

	if _, ok := v.fingerprints[Normalize(input)]; ok {
		log.Info().Msg("unlock: access key accepted")
		return true, nil
	}

	v.guard.RecordFailure(ctx)
	log.Info().Msg("unlock: access key rejected")
	return false, nil
}
