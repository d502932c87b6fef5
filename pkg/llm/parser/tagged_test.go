package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrammar_Parse(t *testing.T) {
	g := NewGrammar("PREMISES", "REASONING", "FALLACIES", "COUNTER-ARGUMENT", "CONFIDENCE")

	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "single line values",
			text: "PREMISES: the sky is blue\nCONFIDENCE: High",
			want: map[string]string{"PREMISES": "the sky is blue", "CONFIDENCE": "High"},
		},
		{
			name: "multi-line value runs to the next tag",
			text: "REASONING: step one\nstep two\n\nstep three\nFALLACIES: None detected",
			want: map[string]string{"REASONING": "step one\nstep two\n\nstep three", "FALLACIES": "None detected"},
		},
		{
			name: "preamble is ignored",
			text: "Sure, here is my analysis.\n\nPREMISES: x",
			want: map[string]string{"PREMISES": "x"},
		},
		{
			name: "case and markdown tolerant",
			text: "**premises:** bold tag\n- Counter-Argument: bullet\n## confidence: Low",
			want: map[string]string{"PREMISES": "bold tag", "COUNTER-ARGUMENT": "bullet", "CONFIDENCE": "Low"},
		},
		{
			name: "unknown tags stay in the current value",
			text: "REASONING: first\nNOTE: not a tag\nlast",
			want: map[string]string{"REASONING": "first\nNOTE: not a tag\nlast"},
		},
		{
			name: "last occurrence wins",
			text: "CONFIDENCE: Low\nCONFIDENCE: High",
			want: map[string]string{"CONFIDENCE": "High"},
		},
		{
			name: "empty text",
			text: "",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Parse(tt.text)
			assert.Len(t, got, 5, "every recognized tag is present")
			for _, tag := range g.Tags() {
				assert.Equal(t, tt.want[tag], got[tag], tag)
			}
		})
	}
}

func TestFields_Get(t *testing.T) {
	f := NewGrammar("NAME").Parse("name: Ada")
	assert.Equal(t, "Ada", f.Get("name"))
	assert.Equal(t, "Ada", f.Get("NAME"))
	assert.Equal(t, "", f.Get("ERA"))
}

func TestGrammar_Format(t *testing.T) {
	g := NewGrammar("NAME", "ERA", "VALUES")
	out := g.Format(Fields{"VALUES": "truth", "NAME": "Ada", "ERA": "", "ZED": "extra"})
	assert.Equal(t, "NAME: Ada\nVALUES: truth\nZED: extra", out)

	assert.Equal(t, "Ada", g.Parse(out).Get("NAME"))
}

func TestNewGrammar_Dedup(t *testing.T) {
	g := NewGrammar("a", "A", " ", "b")
	assert.Equal(t, []string{"A", "B"}, g.Tags())
}
