package analysis

import (
	"fmt"
	"strings"
)

// Recommend produces the insight sentences and visualization suggestions for a
// dataset with the given shape. Column names keep their input order.
func Recommend(rowCount, columnCount int, numeric, categorical []string) (insights, suggestions []string) {
	insights = append(insights, fmt.Sprintf("Dataset contains %d records with %d columns.", rowCount, columnCount))
	if len(numeric) > 0 {
		insights = append(insights, fmt.Sprintf("Found %d numeric columns: %s.", len(numeric), strings.Join(numeric, ", ")))
	}
	if len(categorical) > 0 {
		insights = append(insights, fmt.Sprintf("Found %d text columns: %s.", len(categorical), strings.Join(categorical, ", ")))
	}

	if len(numeric) >= 2 {
		suggestions = append(suggestions,
			"Correlation Analysis recommended.",
			"Scatter plots for numeric relationships.",
		)
	}
	if len(numeric) >= 1 {
		suggestions = append(suggestions,
			"Distribution charts for numeric data.",
			"Box plots for outlier detection.",
		)
	}
	return insights, suggestions
}
