package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{name: "valid", def: Definition{ID: "a", Provider: "P1", Tier: TierFast}, wantErr: false},
		{name: "empty id", def: Definition{Provider: "P1", Tier: TierFast}, wantErr: true},
		{name: "empty provider", def: Definition{ID: "a", Tier: TierFast}, wantErr: true},
		{name: "unknown tier", def: Definition{ID: "a", Provider: "P1", Tier: Tier(99)}, wantErr: true},
		{name: "negative input cost", def: Definition{ID: "a", Provider: "P1", Tier: TierFast, CostPer1kInput: -1}, wantErr: true},
		{name: "negative output cost", def: Definition{ID: "a", Provider: "P1", Tier: TierFast, CostPer1kOutput: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewRoutingContextClamps(t *testing.T) {
	assert.Equal(t, 0.0, NewRoutingContext(-1, "").Complexity)
	assert.Equal(t, 1.0, NewRoutingContext(2, "").Complexity)
	assert.Equal(t, 0.5, NewRoutingContext(0.5, "x").Complexity)
	assert.Equal(t, "x", NewRoutingContext(0.5, "x").Domain)
}

func TestLastUserMessage(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "assistant reply"},
		{Role: RoleUser, Content: "second"},
	}
	got, ok := LastUserMessage(messages)
	require.True(t, ok)
	assert.Equal(t, "second", got)

	_, ok = LastUserMessage(nil)
	assert.False(t, ok)

	_, ok = LastUserMessage([]Message{{Role: RoleSystem, Content: "only system"}})
	assert.False(t, ok)
}

func TestCost(t *testing.T) {
	def := Definition{CostPer1kInput: 0.01, CostPer1kOutput: 0.03}
	usage := Usage{PromptTokens: 1000, CompletionTokens: 2000}
	assert.InDelta(t, 0.01+0.06, Cost(def, usage), 1e-9)

	assert.Equal(t, 0.0, Cost(def, Usage{}))
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "fast", TierFast.String())
	assert.Equal(t, "smart", TierSmart.String())
	assert.Equal(t, "reasoning", TierReasoning.String())
	assert.Equal(t, "unknown", Tier(0).String())
}
