// Package classifier maps free text (merchant plus description) to a spending
// category by keyword matching over an ordered table.
package classifier

import (
	"strings"

	"finance-ledger-go/internal/models"
)

// Fallback is returned when nothing matches.
const Fallback = "Others"

// Category is one row of the table. Keywords are matched as lower-case substrings.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Classifier holds categories in priority order. The first category with a
// matching keyword wins, so order is part of the behaviour.
type Classifier struct {
	categories []Category
}

// DefaultCategories returns a fresh copy of the built-in table.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Income", Keywords: []string{"salary", "payroll", "income"}},
		{Name: "Food", Keywords: []string{"zomato", "swiggy", "restaurant", "cafe", "dining", "food"}},
		{Name: "Groceries", Keywords: []string{"grocery", "supermarket", "bigbasket"}},
		{Name: "Transport", Keywords: []string{"uber", "ola", "rapido", "bus", "metro"}},
		{Name: "Bills", Keywords: []string{"electricity", "water", "gas", "recharge"}},
		{Name: "Shopping", Keywords: []string{"amazon", "flipkart", "myntra", "ebay", "shopping", "meesho", "ajio"}},
		{Name: "Entertainment", Keywords: []string{"netflix", "spotify", "prime", "cinema", "gaming"}},
		{Name: "Health", Keywords: []string{"hospital", "pharmacy", "clinic"}},
		{Name: "Education", Keywords: []string{"school", "college", "university", "course", "tuition"}},
		{Name: Fallback},
	}
}

// New builds a classifier over categories. Keywords are normalised to lower
// case and blanks are dropped.
func New(categories []Category) *Classifier {
	normalized := make([]Category, 0, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		normalized = append(normalized, Category{Name: name, Keywords: normalizeKeywords(c.Keywords)})
	}
	return &Classifier{categories: normalized}
}

// Default returns a classifier over the built-in table.
func Default() *Classifier {
	return New(DefaultCategories())
}

// Categories returns a copy of the table in priority order.
func (c *Classifier) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Classify returns the first category whose keywords occur in text, or Fallback.
func (c *Classifier) Classify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Fallback
	}

	for _, category := range c.categories {
		for _, keyword := range category.Keywords {
			if strings.Contains(text, keyword) {
				return category.Name
			}
		}
	}
	return Fallback
}

// WithRules returns a classifier that consults the user's rules, in order,
// before the receiver's table. The receiver is not modified.
func (c *Classifier) WithRules(rules []models.CategoryRule) *Classifier {
	if len(rules) == 0 {
		return c
	}

	categories := make([]Category, 0, len(rules)+len(c.categories))
	for _, rule := range rules {
		categories = append(categories, Category{Name: rule.CategoryName, Keywords: SplitKeywords(rule.Keywords)})
	}
	categories = append(categories, c.categories...)
	return New(categories)
}

// SplitKeywords parses a comma-separated keyword list.
func SplitKeywords(keywords string) []string {
	return normalizeKeywords(strings.Split(keywords, ","))
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
