// Package category assigns spending categories to transaction
// descriptions using an ordered keyword list. Classification is a pure
// function: the same description always yields the same category, so
// re-classifying on re-ingest is safe.
package category

import (
	"strings"

	"github.com/piloted/finsync/internal/models"
)

type keywordRule struct {
	keywords []string
	category models.Category
}

// keywordRules is evaluated top to bottom, first match wins. Matching is
// case-insensitive substring matching against the whole description.
var keywordRules = []keywordRule{
	{[]string{"ica", "coop", "hemköp", "willys", "lidl"}, models.CategoryGroceries},
	{[]string{"shell", "bensin", "circle k", "sl ", "sj "}, models.CategoryTransport},
	{[]string{"spotify", "netflix", "hbo", "cinema", "bio"}, models.CategoryEntertainment},
	{[]string{"lön", "salary", "payroll"}, models.CategoryIncome},
	{[]string{"hyra", "rent", "brf"}, models.CategoryHousing},
	{[]string{"telia", "bredband", "vattenfall", "el "}, models.CategoryUtilities},
}

// Classify maps a transaction description to a category. Unmatched
// descriptions resolve to Other.
func Classify(description string) models.Category {
	desc := strings.ToLower(description)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.category
			}
		}
	}
	return models.CategoryOther
}
