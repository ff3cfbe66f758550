// Package validate checks decoded JSON request bodies against small
// composable rules and reports every problem with its dotted path.
//
//	rule := validate.Object(
//		validate.Field("service", validate.String()),
//		validate.Field("args", validate.Values(validate.Any())),
//	)
//	msgs := rule(gjson.ParseBytes(body), "body")
//	// ["body.service should be a string"]
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Rule inspects v, found at path name, and returns a message per problem.
// An empty result means v is valid.
type Rule func(v gjson.Result, name string) []string

// FieldRule pairs an object key with the rule for its value.
type FieldRule struct {
	Key  string
	Rule Rule
}

// Field is shorthand for a FieldRule literal.
func Field(key string, rule Rule) FieldRule {
	return FieldRule{Key: key, Rule: rule}
}

// Check parses raw and applies rule at name.
func Check(raw []byte, name string, rule Rule) []string {
	if !gjson.ValidBytes(raw) {
		return []string{name + " should be valid JSON"}
	}
	return rule(gjson.ParseBytes(raw), name)
}

// Any accepts every value, including a missing one.
func Any() Rule {
	return func(gjson.Result, string) []string { return nil }
}

// String requires a JSON string.
func String() Rule {
	return func(v gjson.Result, name string) []string {
		if v.Type != gjson.String {
			return []string{name + " should be a string"}
		}
		return nil
	}
}

// WholeNumber requires an integral JSON number no smaller than min.
func WholeNumber(min int64) Rule {
	return func(v gjson.Result, name string) []string {
		if v.Type != gjson.Number {
			return []string{name + " should be a number"}
		}
		if f := v.Float(); f != float64(int64(f)) || int64(f) < min {
			return []string{fmt.Sprintf("%s should be a whole number of at least %d", name, min)}
		}
		return nil
	}
}

// OneOf requires a string equal to one of values.
func OneOf(values ...string) Rule {
	quoted := make([]string, len(values))
	for i, s := range values {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	msg := " should be one of " + strings.Join(quoted, ", ")

	return func(v gjson.Result, name string) []string {
		if v.Type != gjson.String {
			return []string{name + " should be a string"}
		}
		for _, s := range values {
			if v.Str == s {
				return nil
			}
		}
		return []string{name + msg}
	}
}

// Matches requires a string matching re. Description completes the message
// "<name> should ...".
func Matches(re *regexp.Regexp, description string) Rule {
	return func(v gjson.Result, name string) []string {
		if v.Type != gjson.String {
			return []string{name + " should be a string"}
		}
		if !re.MatchString(v.Str) {
			return []string{name + " should " + description}
		}
		return nil
	}
}

// Object requires a JSON object and applies each field rule to its key.
// Keys not listed are ignored.
func Object(fields ...FieldRule) Rule {
	return func(v gjson.Result, name string) []string {
		if !v.IsObject() {
			return []string{name + " should be an object"}
		}
		var msgs []string
		for _, f := range fields {
			msgs = append(msgs, f.Rule(v.Get(gjson.Escape(f.Key)), name+"."+f.Key)...)
		}
		return msgs
	}
}

// Values requires a JSON object whose every value satisfies rule.
func Values(rule Rule) Rule {
	return func(v gjson.Result, name string) []string {
		if !v.IsObject() {
			return []string{name + " should be an object"}
		}
		var msgs []string
		v.ForEach(func(key, value gjson.Result) bool {
			msgs = append(msgs, rule(value, name+"."+key.String())...)
			return true
		})
		return msgs
	}
}
