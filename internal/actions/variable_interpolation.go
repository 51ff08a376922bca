package actions

import (
	"fmt"
	"regexp"
	"strings"
)

// Variable interpolation pattern: ${variable_name}
var interpolationPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// InterpolateVariables replaces ${variable_name} patterns with their values.
// Unknown variables are left in place and reported in the error.
func InterpolateVariables(input string, vars VariableStoreInterface) (string, error) {
	if !strings.Contains(input, "${") {
		// Fast path: no interpolation needed
		return input, nil
	}

	var missingVars []string
	result := interpolationPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]

		value, ok := vars.Get(varName)
		if !ok {
			missingVars = append(missingVars, varName)
			return match
		}
		return value
	})

	if len(missingVars) > 0 {
		return result, fmt.Errorf("undefined variables: %v", missingVars)
	}

	return result, nil
}

// ExtractVariableNames returns all variable names referenced in the string
func ExtractVariableNames(input string) []string {
	matches := interpolationPattern.FindAllStringSubmatch(input, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) > 1 {
			names = append(names, match[1])
		}
	}
	return names
}

// InterpolateString is a convenience wrapper for runtime interpolation
func InterpolateString(input string, bot BotInterface) (string, error) {
	return InterpolateVariables(input, bot.Variables())
}
