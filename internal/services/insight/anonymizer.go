package insight

import (
	"fmt"
	"strings"
	"sync"
)

// Anonymizer maps internal product codes to neutral aliases before context
// leaves the system. Aliases are stable within one Anonymizer instance so a
// run's prompts stay consistent.
type Anonymizer struct {
	mu      sync.Mutex
	aliases map[string]string
	next    int
}

// NewAnonymizer creates an empty alias map
func NewAnonymizer() *Anonymizer {
	return &Anonymizer{
		aliases: make(map[string]string),
		next:    1,
	}
}

// Alias returns the stable alias for a product code
func (a *Anonymizer) Alias(productCode string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if alias, ok := a.aliases[productCode]; ok {
		return alias
	}
	alias := fmt.Sprintf("component-%03d", a.next)
	a.next++
	a.aliases[productCode] = alias
	return alias
}

// Scrub replaces occurrences of the product code and name in text with the
// product's alias, case-insensitively
func (a *Anonymizer) Scrub(text, productCode, productName string) string {
	alias := a.Alias(productCode)

	for _, needle := range []string{productCode, productName, spaced(productCode)} {
		if needle == "" {
			continue
		}
		text = replaceFold(text, needle, alias)
	}
	return text
}

// spaced turns a slug into its spoken form ("ac-compressor" -> "ac compressor")
func spaced(slug string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(slug)
}

// replaceFold is a case-insensitive strings.ReplaceAll
func replaceFold(s, old, new string) string {
	if old == "" {
		return s
	}
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)

	var b strings.Builder
	for {
		idx := strings.Index(lower, oldLower)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(new)
		s = s[idx+len(old):]
		lower = lower[idx+len(old):]
	}
}
