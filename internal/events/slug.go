package events

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugAttempts = 20

// stripMarks returns a fresh accent-removing transformer. Chains keep internal buffers and must not be shared.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Parameterize turns s into a URL-safe slug: accents dropped, lowercase, runs of other characters become "-".
func Parameterize(s string) string {
	plain, _, err := transform.String(stripMarks(), s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}

// SlugTaken reports whether slug is used by an event other than the one being saved.
type SlugTaken func(ctx context.Context, slug string) (bool, error)

// UniqueSlug parameterizes base and appends -2, -3, ... until taken reports it free.
func UniqueSlug(ctx context.Context, base string, taken SlugTaken) (string, error) {
	root := Parameterize(base)
	if root == "" {
		root = "event"
	}
	candidate := root
	for i := 2; i <= maxSlugAttempts+1; i++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", root, i)
	}
	return root + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0], nil
}
