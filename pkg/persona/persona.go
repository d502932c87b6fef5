// Package persona holds the profiles the pipeline can embody and the
// role-specific context each stage receives while a persona is active.
package persona

import (
	"fmt"
	"strings"

	"github.com/entrhq/synapse/pkg/llm/parser"
)

// Profile field names, in presentation order.
const (
	FieldName                = "NAME"
	FieldEra                 = "ERA"
	FieldBeliefs             = "BELIEFS"
	FieldValues              = "VALUES"
	FieldSpeechStyle         = "SPEECH_STYLE"
	FieldEmotionalTendencies = "EMOTIONAL_TENDENCIES"
	FieldReasoningStyle      = "REASONING_STYLE"
	FieldKeyExperiences      = "KEY_EXPERIENCES"
	FieldPersonalityTraits   = "PERSONALITY_TRAITS"
	FieldKnownViews          = "KNOWN_VIEWS"
)

// FieldNames lists every profile field in order.
var FieldNames = []string{
	FieldName, FieldEra, FieldBeliefs, FieldValues, FieldSpeechStyle,
	FieldEmotionalTendencies, FieldReasoningStyle, FieldKeyExperiences,
	FieldPersonalityTraits, FieldKnownViews,
}

var grammar = parser.NewGrammar(FieldNames...)

// Stage roles a persona context can be tailored for.
const (
	RoleSensory   = "Thalamus & Sensory Cortex"
	RoleMemory    = "Hippocampus"
	RoleLogic     = "Left Frontal Lobe"
	RoleEmotional = "Amygdala & Limbic System"
	RoleExecutive = "Prefrontal Cortex (PFC)"
)

// Profile is one persona.
type Profile struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Emoji    string            `yaml:"emoji,omitempty"`
	Category string            `yaml:"category,omitempty"`
	Source   string            `yaml:"source,omitempty"`
	Fields   map[string]string `yaml:"profile"`
}

// Field is one named profile value.
type Field struct {
	Name  string
	Value string
}

// ExtractionPrompt asks a reasoning service for a profile in the format
// ParseProfile reads. The text to analyze is appended by the caller.
const ExtractionPrompt = `Analyze the following biography/autobiography text and extract a detailed persona profile.
Return the profile in EXACTLY this format (fill in each field):

NAME: [Full name of the person]
ERA: [Time period they lived/live in]
BELIEFS: [Core beliefs, philosophies, worldview in 2-3 sentences]
VALUES: [What they valued most in 2-3 sentences]
SPEECH_STYLE: [How they spoke/wrote: formal, casual, poetic, blunt. Include notable phrases or patterns]
EMOTIONAL_TENDENCIES: [Their emotional patterns: passionate, stoic, anxious, optimistic]
REASONING_STYLE: [How they approached problems: analytical, intuitive, empirical, philosophical]
KEY_EXPERIENCES: [3-5 defining life events that shaped their worldview]
PERSONALITY_TRAITS: [5-7 dominant personality traits]
KNOWN_VIEWS: [Their well-known stances on important topics in 2-3 sentences]`

// ParseProfile reads a profile written in "FIELD: value" lines. Missing
// fields are empty. The profile name is taken from NAME.
func ParseProfile(text string) *Profile {
	parsed := grammar.Parse(text)
	p := &Profile{Fields: make(map[string]string, len(FieldNames))}
	for _, f := range FieldNames {
		p.Fields[f] = parsed.Get(f)
	}
	p.Name = p.Fields[FieldName]
	p.ID = Slug(p.Name)
	return p
}

// Slug turns a display name into a lowercase identifier.
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// Get returns a field value, or "".
func (p *Profile) Get(field string) string {
	if p == nil {
		return ""
	}
	return p.Fields[strings.ToUpper(field)]
}

// Ordered returns the profile fields in FieldNames order, including empty ones.
func (p *Profile) Ordered() []Field {
	out := make([]Field, len(FieldNames))
	for i, f := range FieldNames {
		out[i] = Field{Name: f, Value: p.Get(f)}
	}
	return out
}

// String renders the profile in the same "FIELD: value" format ParseProfile reads.
func (p *Profile) String() string {
	fields := make(parser.Fields, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return grammar.Format(fields)
}

// DisplayName is Name, or the NAME field when Name is unset.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Get(FieldName)
}

// AgentContext returns the persona context for a stage role. Unknown roles
// get only the shared header.
func (p *Profile) AgentContext(role string) string {
	if p == nil {
		return ""
	}
	name := p.DisplayName()
	era := p.Get(FieldEra)
	if era == "" {
		era = "Unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PERSONA MODE ACTIVE. You are embodying: %s\n", name)
	fmt.Fprintf(&b, "Era: %s\n", era)
	fmt.Fprintf(&b, "Personality: %s\n", p.Get(FieldPersonalityTraits))

	switch role {
	case RoleEmotional:
		fmt.Fprintf(&b, "Emotional Tendencies: %s\n", p.Get(FieldEmotionalTendencies))
		fmt.Fprintf(&b, "Values: %s\n", p.Get(FieldValues))
		fmt.Fprintf(&b, "Respond with the emotional patterns of %s. Feel as they would feel.\n", name)
	case RoleLogic:
		fmt.Fprintf(&b, "Reasoning Style: %s\n", p.Get(FieldReasoningStyle))
		fmt.Fprintf(&b, "Known Views: %s\n", p.Get(FieldKnownViews))
		fmt.Fprintf(&b, "Think and reason exactly as %s would. Use their analytical approach.\n", name)
	case RoleExecutive:
		fmt.Fprintf(&b, "Beliefs: %s\n", p.Get(FieldBeliefs))
		fmt.Fprintf(&b, "Speech Style: %s\n", p.Get(FieldSpeechStyle))
		fmt.Fprintf(&b, "Key Experiences: %s\n", p.Get(FieldKeyExperiences))
		fmt.Fprintf(&b, "Make decisions as %s would. Speak in their voice and style.\n", name)
	case RoleSensory:
		fmt.Fprintf(&b, "Interpret the input through the lens of %s's worldview and era.\n", name)
	case RoleMemory:
		fmt.Fprintf(&b, "Key Experiences: %s\n", p.Get(FieldKeyExperiences))
		fmt.Fprintf(&b, "Draw on %s's life experiences as context for memory retrieval.\n", name)
	}
	return b.String()
}

// Inject places a persona context block into a stage system prompt, right
// after its first paragraph (the role definition). A prompt with no
// paragraph break past its first few characters gets the block appended.
// An empty context leaves the prompt unchanged.
func Inject(prompt, context string) string {
	if context == "" {
		return prompt
	}
	block := "\n\n--- ACTIVE PERSONA ---\n" +
		"You are currently embodying the following persona. " +
		"All your processing must be filtered through this identity: " +
		"adopt their worldview, reasoning patterns, and communication style.\n\n" +
		context + "\n" +
		"--- END PERSONA ---\n"

	if len(prompt) > 10 {
		if i := strings.Index(prompt[10:], "\n\n"); i >= 0 {
			at := i + 10
			return prompt[:at] + block + prompt[at:]
		}
	}
	return prompt + block
}
