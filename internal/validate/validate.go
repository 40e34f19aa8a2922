// Package validate performs per-tool schema and bound checks on tool call parameters.
package validate

import (
	"encoding/json"
	"slices"
	"strings"
	"unicode/utf8"
)

// Message is one turn of a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validator checks tool call parameters against the static rule set.
// It is a pure component: no I/O, no mutation, deterministic for a given
// rule set and input.
type Validator struct {
	rules  RuleSet
	strict bool
}

// NewValidator creates a Validator over the given rule set.
// In strict mode, parameters not declared by a tool's rules are rejected
// instead of ignored.
func NewValidator(rules RuleSet, strict bool) *Validator {
	return &Validator{rules: rules, strict: strict}
}

// Validate checks the parameters of a tool call and returns a normalized copy
// containing only the declared parameters. The input map is never modified.
func (v *Validator) Validate(tool string, params map[string]any) (map[string]any, error) {
	rules, ok := v.rules[tool]
	if !ok {
		return nil, newError(KindUnknownTool, "", "unknown tool %q", tool)
	}

	if v.strict {
		for name := range params {
			if _, declared := rules[name]; !declared {
				return nil, newError(KindNotAllowed, name, "parameter is not recognized by tool %q", tool)
			}
		}
	}

	validated := make(map[string]any, len(rules))
	for name, rule := range rules {
		raw, present := params[name]
		if !present || raw == nil {
			if rule.Required {
				return nil, newError(KindMissingField, name, "required parameter is missing")
			}
			continue
		}

		value, err := checkValue(name, rule, raw)
		if err != nil {
			return nil, err
		}
		validated[name] = value
	}
	return validated, nil
}

func checkValue(name string, rule Rule, raw any) (any, error) {
	switch rule.Type {
	case TypeString:
		return checkString(name, rule, raw)
	case TypeNumber:
		return checkNumber(name, rule, raw)
	case TypeMessages:
		return checkMessages(name, raw)
	default:
		return nil, newError(KindTypeMismatch, name, "parameter has an undeclared type")
	}
}

func checkString(name string, rule Rule, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", newError(KindTypeMismatch, name, "expected a string")
	}
	if rule.Required && strings.TrimSpace(s) == "" {
		return "", newError(KindMissingField, name, "required parameter must not be empty")
	}
	if rule.MaxLen > 0 && utf8.RuneCountInString(s) > rule.MaxLen {
		return "", newError(
			KindLengthExceeded, name,
			"exceeds maximum length of %d characters", rule.MaxLen,
		)
	}
	if len(rule.Allowed) > 0 && !slices.Contains(rule.Allowed, s) {
		return "", newError(
			KindNotAllowed, name,
			"value %q is not allowed, allowed values: %s", s, strings.Join(rule.Allowed, ", "),
		)
	}
	return s, nil
}

func checkNumber(name string, rule Rule, raw any) (float64, error) {
	n, ok := toFloat(raw)
	if !ok {
		return 0, newError(KindTypeMismatch, name, "expected a number")
	}
	if (rule.Min != nil && n < *rule.Min) || (rule.Max != nil && n > *rule.Max) {
		return 0, newError(KindOutOfRange, name, "value %v is outside the allowed range", n)
	}
	return n, nil
}

func checkMessages(name string, raw any) ([]Message, error) {
	items, ok := raw.([]any)
	if !ok {
		// tolerate an already-typed slice, e.g. from internal callers
		if msgs, typed := raw.([]Message); typed {
			items = make([]any, len(msgs))
			for i, m := range msgs {
				items[i] = map[string]any{"role": m.Role, "content": m.Content}
			}
		} else {
			return nil, newError(KindTypeMismatch, name, "expected a list of messages")
		}
	}
	if len(items) == 0 {
		return nil, newError(KindMissingField, name, "required parameter must not be empty")
	}

	messages := make([]Message, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, newError(KindTypeMismatch, name, "each message must be an object with role and content")
		}
		role, _ := obj["role"].(string)
		content, hasContent := obj["content"].(string)
		if !slices.Contains(MessageRoles, role) {
			return nil, newError(
				KindBadRole, name,
				"message role %q is not allowed, allowed roles: %s", role, strings.Join(MessageRoles, ", "),
			)
		}
		if !hasContent {
			return nil, newError(KindTypeMismatch, name, "each message must carry string content")
		}
		messages = append(messages, Message{Role: role, Content: content})
	}
	return messages, nil
}

// toFloat accepts the numeric representations a decoded JSON body or an MCP
// arguments map may carry.
func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
