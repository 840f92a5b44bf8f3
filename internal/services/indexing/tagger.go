package indexing

import (
	"strings"

	"github.com/ternarybob/demandcast/internal/models"
)

// regionLexicon maps region names to the keywords that imply them
var regionLexicon = map[string][]string{
	"north-america": {"united states", "usa", "u.s.", "canada", "mexico", "north america"},
	"europe":        {"europe", "european", "germany", "france", "uk", "united kingdom"},
	"asia-pacific":  {"china", "japan", "india", "south korea", "asia", "asia-pacific"},
	"latin-america": {"brazil", "argentina", "latin america", "south america"},
}

// tagVocabulary is the set of known relevance tags with the content keywords
// that trigger each
type tagVocabulary struct {
	keywords map[string][]string // tag -> keywords
	order    []string
}

// buildVocabulary derives the tag vocabulary from the product universe.
// Each product tag matches on its own suffix with separators spaced out, so
// "product:ac-compressor" fires on "ac compressor".
func buildVocabulary(products []*models.ProductRecord) *tagVocabulary {
	vocab := &tagVocabulary{keywords: make(map[string][]string)}

	add := func(tag string, keywords ...string) {
		if _, seen := vocab.keywords[tag]; !seen {
			vocab.order = append(vocab.order, tag)
		}
		vocab.keywords[tag] = append(vocab.keywords[tag], keywords...)
	}

	for _, product := range products {
		if product == nil {
			continue
		}
		add("product:"+product.Code, tagKeyword(product.Code), strings.ToLower(product.Name))
		if product.Category != "" {
			add("category:"+product.Category, tagKeyword(product.Category))
		}
		for _, tag := range product.RelevanceTags {
			add(tag, tagKeywordFromTag(tag))
		}
	}

	return vocab
}

// matchTags returns every vocabulary tag whose keywords appear in the content
func (v *tagVocabulary) matchTags(content string) []string {
	lower := strings.ToLower(content)

	var tags []string
	for _, tag := range v.order {
		for _, keyword := range v.keywords[tag] {
			if keyword != "" && strings.Contains(lower, keyword) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

// detectRegion returns the first region whose keywords appear in the content
func detectRegion(content string) string {
	lower := strings.ToLower(content)
	for _, region := range []string{"north-america", "europe", "asia-pacific", "latin-america"} {
		for _, keyword := range regionLexicon[region] {
			if strings.Contains(lower, keyword) {
				return region
			}
		}
	}
	return ""
}

// tagKeyword turns a slug into its content keyword ("spark_plugs" -> "spark plugs")
func tagKeyword(slug string) string {
	replaced := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return strings.ToLower(strings.TrimSpace(replaced))
}

// tagKeywordFromTag strips the tag namespace before deriving the keyword
func tagKeywordFromTag(tag string) string {
	if idx := strings.Index(tag, ":"); idx >= 0 {
		tag = tag[idx+1:]
	}
	return tagKeyword(tag)
}
