package service

import "strings"

// Placeholders a notification template may use
const (
	PlaceholderCustomer = "customer"
	PlaceholderService  = "service"
	PlaceholderDate     = "date"
	PlaceholderMessage  = "message"
)

var knownPlaceholders = []string{PlaceholderCustomer, PlaceholderService, PlaceholderDate, PlaceholderMessage}

// Render substitutes {customer}, {service}, {date} and {message} with values from vars.
// Other placeholders, and known ones missing from vars, are left as written.
// Substituted values are not expanded again.
func Render(text string, vars map[string]string) string {
	pairs := make([]string, 0, 2*len(knownPlaceholders))
	for _, name := range knownPlaceholders {
		if v, ok := vars[name]; ok {
			pairs = append(pairs, "{"+name+"}", v)
		}
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
