package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extracted = `Here is the profile you asked for.

**NAME:** Grace Brewster Hopper
ERA: 1906-1992, the birth of programming
BELIEFS: It is easier to ask forgiveness than permission.
Ships are safe in harbor, but that is not what ships are for.
PERSONALITY_TRAITS: Irreverent, practical, tenacious`

func TestParseProfile(t *testing.T) {
	p := ParseProfile(extracted)

	assert.Equal(t, "Grace Brewster Hopper", p.Name)
	assert.Equal(t, "grace-brewster-hopper", p.ID)
	assert.Equal(t, "1906-1992, the birth of programming", p.Get("era"))
	assert.Equal(t, "It is easier to ask forgiveness than permission.\nShips are safe in harbor, but that is not what ships are for.", p.Get(FieldBeliefs))
	assert.Equal(t, "", p.Get(FieldKnownViews), "missing fields are empty")
	assert.Len(t, p.Fields, len(FieldNames))

	ordered := p.Ordered()
	require.Len(t, ordered, len(FieldNames))
	assert.Equal(t, Field{Name: FieldName, Value: "Grace Brewster Hopper"}, ordered[0])

	round := ParseProfile(p.String())
	assert.Equal(t, p.Fields, round.Fields)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "marie-curie", Slug("  Marie  Curie! "))
	assert.Equal(t, "", Slug("***"))
}

func TestAgentContext(t *testing.T) {
	p := ParseProfile(extracted)
	p.Fields[FieldEmotionalTendencies] = "Impatient with bureaucracy"
	p.Fields[FieldReasoningStyle] = "Hands-on, empirical"

	tests := []struct {
		role     string
		contains []string
		excludes []string
	}{
		{
			role:     RoleEmotional,
			contains: []string{"Emotional Tendencies: Impatient with bureaucracy", "Feel as they would feel."},
			excludes: []string{"Reasoning Style"},
		},
		{
			role:     RoleLogic,
			contains: []string{"Reasoning Style: Hands-on, empirical", "Think and reason exactly as Grace Brewster Hopper would."},
		},
		{
			role:     RoleExecutive,
			contains: []string{"Beliefs: It is easier", "Speak in their voice and style."},
		},
		{
			role:     RoleSensory,
			contains: []string{"through the lens of Grace Brewster Hopper's worldview and era"},
		},
		{
			role:     RoleMemory,
			contains: []string{"Key Experiences:", "context for memory retrieval"},
		},
		{
			role:     "Cerebellum",
			contains: []string{"PERSONA MODE ACTIVE. You are embodying: Grace Brewster Hopper", "Personality: Irreverent, practical, tenacious"},
			excludes: []string{"Beliefs", "Reasoning Style", "Key Experiences"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			got := p.AgentContext(tt.role)
			assert.True(t, strings.HasPrefix(got, "PERSONA MODE ACTIVE."))
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}

	var nilProfile *Profile
	assert.Equal(t, "", nilProfile.AgentContext(RoleLogic))

	p.Fields[FieldEra] = ""
	assert.Contains(t, p.AgentContext(RoleLogic), "Era: Unknown")
}

func TestInject(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "after first paragraph",
			prompt: "You are the logic system.\n\nYOUR TASK: reason.",
			want:   "You are the logic system.<BLOCK>\n\nYOUR TASK: reason.",
		},
		{
			name:   "break inside the first ten bytes is skipped",
			prompt: "Hi.\n\nYou are the logic system.\n\nTask.",
			want:   "Hi.\n\nYou are the logic system.<BLOCK>\n\nTask.",
		},
		{
			name:   "no paragraph break appends",
			prompt: "You are the logic system.",
			want:   "You are the logic system.<BLOCK>",
		},
	}

	block := "\n\n--- ACTIVE PERSONA ---\n" +
		"You are currently embodying the following persona. " +
		"All your processing must be filtered through this identity: " +
		"adopt their worldview, reasoning patterns, and communication style.\n\n" +
		"CTX\n--- END PERSONA ---\n"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := strings.Replace(tt.want, "<BLOCK>", block, 1)
			assert.Equal(t, want, Inject(tt.prompt, "CTX"))
		})
	}

	assert.Equal(t, "unchanged\n\nprompt", Inject("unchanged\n\nprompt", ""))
}

func TestBuiltinRegistry(t *testing.T) {
	r := Builtin()
	require.Equal(t, 8, r.Len())

	list := r.List()
	assert.Equal(t, "gandhi", list[0].ID)
	assert.Equal(t, "lovelace", list[len(list)-1].ID)

	p, ok := r.Get(" Einstein ")
	require.True(t, ok)
	assert.Equal(t, "Albert Einstein", p.Name)
	assert.Equal(t, "Scientist", p.Category)
	for _, f := range FieldNames {
		assert.NotEmpty(t, p.Get(f), "field %s", f)
	}

	p.Fields[FieldName] = "mutated"
	again, _ := r.Get("einstein")
	assert.Equal(t, "Albert Einstein", again.Get(FieldName), "Get returns a copy")

	_, ok = r.Get("nobody")
	assert.False(t, ok)

	assert.Contains(t, r.Categories(), "Leader")
}

func TestParseRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  string
	}{
		{name: "bad yaml", data: "personas: [", err: "decode registry"},
		{name: "missing id", data: "personas:\n- name: X\n", err: "has no id"},
		{name: "duplicate id", data: "personas:\n- id: a\n- id: a\n", err: `duplicate id "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.data))
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestParseRegistry_NameFallsBackToProfile(t *testing.T) {
	r, err := ParseRegistry([]byte("personas:\n- id: x\n  profile:\n    name: Someone\n"))
	require.NoError(t, err)

	p, ok := r.Get("x")
	require.True(t, ok)
	assert.Equal(t, "Someone", p.Name)
}
