package validate

// Input bounds for the gateway's tools.
const (
	// MaxInputLength caps general-purpose text inputs like chat messages and
	// system prompts.
	MaxInputLength = 50000
	// MaxDocumentLength caps the document text accepted for analysis.
	MaxDocumentLength = 100000
	// MaxTranslationLength caps the text accepted for translation.
	MaxTranslationLength = 10000
	// MaxLanguageLength caps language name inputs.
	MaxLanguageLength = 100
	// MaxTokensLimit caps the caller-requested output size.
	MaxTokensLimit = 128000
)

// MessageRoles are the roles accepted in a conversation history.
var MessageRoles = []string{"user", "assistant", "system"}

// FieldType is the declared type of a tool parameter.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	// TypeMessages is an ordered list of {role, content} objects.
	TypeMessages FieldType = "messages"
)

// Rule declares the constraints on a single tool parameter.
type Rule struct {
	Type     FieldType
	Required bool
	// MaxLen bounds string length in characters (runes). Zero means unbounded.
	MaxLen int
	// Min/Max bound numeric values. Nil means unbounded on that side.
	Min *float64
	Max *float64
	// Allowed enumerates the permitted values. Empty means any value.
	Allowed []string
}

// RuleSet maps each tool to its parameter rules. Immutable after construction.
type RuleSet map[string]map[string]Rule

func ptr(f float64) *float64 { return &f }

// NewRuleSet builds the rule set for the gateway's fixed tool set.
// allowedModels is the explicit model allowlist; arbitrary upstream model
// identifiers are rejected to protect the cost and abuse surface.
func NewRuleSet(allowedModels []string) RuleSet {
	modelRule := Rule{Type: TypeString, Allowed: allowedModels}
	temperatureRule := Rule{Type: TypeNumber, Min: ptr(0.0), Max: ptr(1.0)}
	maxTokensRule := Rule{Type: TypeNumber, Min: ptr(1), Max: ptr(MaxTokensLimit)}

	return RuleSet{
		"chat_with_gpt": {
			"user_message":  {Type: TypeString, Required: true, MaxLen: MaxInputLength},
			"system_prompt": {Type: TypeString, MaxLen: MaxInputLength},
			"model":         modelRule,
			"temperature":   temperatureRule,
			"max_tokens":    maxTokensRule,
		},
		"multi_turn_conversation": {
			"messages":      {Type: TypeMessages, Required: true},
			"system_prompt": {Type: TypeString, MaxLen: MaxInputLength},
			"model":         modelRule,
			"temperature":   temperatureRule,
		},
		"analyze_document_with_gpt": {
			"document_text":    {Type: TypeString, Required: true, MaxLen: MaxDocumentLength},
			"analysis_request": {Type: TypeString, Required: true, MaxLen: MaxInputLength},
			"model":            modelRule,
		},
		"translate_text": {
			"text":            {Type: TypeString, Required: true, MaxLen: MaxTranslationLength},
			"target_language": {Type: TypeString, Required: true, MaxLen: MaxLanguageLength},
			"source_language": {Type: TypeString, MaxLen: MaxLanguageLength},
		},
		"health_check": {},
	}
}
