package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_Fields(t *testing.T) {
	m := &Match{Rule: "A", Raw: []string{"A", "/tmp/item", "extra"}}
	assert.Equal(t, []string{"/tmp/item", "extra"}, m.Fields())

	single := &Match{Rule: "B", Raw: []string{"B"}}
	assert.Nil(t, single.Fields())
}

func TestJoinRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []string
		want  string
	}{
		{name: "empty", rules: nil, want: ""},
		{name: "single", rules: []string{"rule A { condition: true }"}, want: "rule A { condition: true }"},
		{
			name:  "multiple",
			rules: []string{"rule A { condition: true }", "rule B { condition: false }"},
			want:  "rule A { condition: true }\nrule B { condition: false }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinRules(tt.rules))
		})
	}
}

func TestItemResult_RuleIDs(t *testing.T) {
	r := &ItemResult{Matches: []*Match{
		{Rule: "B", Raw: []string{"B"}},
		{Rule: "A", Raw: []string{"A"}},
		{Rule: "B", Raw: []string{"B", "x"}},
	}}
	assert.Equal(t, []string{"B", "A"}, r.RuleIDs())
}
