package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category names, in classification priority order.
const (
	CategoryMains    = "Mains"
	CategoryDrinks   = "Drinks"
	CategoryStarters = "Starters"
	CategoryDesserts = "Desserts"
)

type categoryRule struct {
	name     string
	keywords []string
}

// categoryRules is read-only. Earlier rules win, so "steak" stays a main even
// though it contains "tea".
var categoryRules = [...]categoryRule{
	{CategoryMains, []string{"burger", "pizza", "pasta", "steak", "chicken", "fish", "rice", "curry", "sandwich", "noodle"}},
	{CategoryDrinks, []string{"wine", "beer", "juice", "soda", "water", "coffee", "tea"}},
	{CategoryStarters, []string{"soup", "salad", "bread", "fries", "wings", "starter"}},
	{CategoryDesserts, []string{"cake", "ice cream", "pie", "pudding", "brownie", "dessert"}},
}

// CategoryShare is the revenue of one category and its share of the total.
type CategoryShare struct {
	Name       string  `json:"name"`
	Revenue    float64 `json:"revenue"`
	Percentage int     `json:"percentage"`
}

// Categories lists the category names in output order.
func Categories() []string {
	names := make([]string, 0, len(categoryRules))
	for _, rule := range categoryRules {
		names = append(names, rule.name)
	}
	return names
}

// Classify maps an item name onto a category by keyword. Unmatched names are mains.
func Classify(name string) string {
	lowered := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return rule.name
			}
		}
	}
	return CategoryMains
}

// CategorySales splits line-item revenue across the whole snapshot into the
// four fixed categories.
func CategorySales(orders []Order) []CategoryShare {
	totals := make([]decimal.Decimal, len(categoryRules))
	position := make(map[string]int, len(categoryRules))
	for i, rule := range categoryRules {
		position[rule.name] = i
	}

	total := decimal.Zero
	for _, order := range orders {
		if !order.usable() {
			continue
		}
		for _, item := range order.Items {
			if !item.usable() {
				continue
			}
			amount := item.Subtotal()
			i := position[Classify(item.Name)]
			totals[i] = totals[i].Add(amount)
			total = total.Add(amount)
		}
	}

	shares := make([]CategoryShare, 0, len(categoryRules))
	for i, rule := range categoryRules {
		share := CategoryShare{Name: rule.name, Revenue: round2(totals[i])}
		if total.IsPositive() {
			share.Percentage = int(totals[i].Div(total).Mul(hundred).Round(0).IntPart())
		}
		shares = append(shares, share)
	}
	return shares
}
