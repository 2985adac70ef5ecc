package domain

import "strings"

// codeToCategoryID maps race discipline codes from the input CSV to the
// web-facing category ids used by the results hub filter buttons.
var codeToCategoryID = map[string]string{
	"harness":      "harness",
	"greyhounds":   "greyhound",
	"thoroughbred": "thoroughbred",
	"r":            "thoroughbred",
	"g":            "greyhound",
	"h":            "harness",
}

// CategoryID resolves a task's code to a category id. Unknown codes are a
// data problem, never retried.
func CategoryID(code string) (string, bool) {
	id, ok := codeToCategoryID[strings.ToLower(strings.TrimSpace(code))]
	return id, ok
}
