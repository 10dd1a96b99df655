package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/model"
)

func fastModel(id, provider string) model.Definition {
	return model.Definition{ID: id, Provider: provider, Tier: model.TierFast, IsHealthy: true}
}

func TestRegisterAndGet(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "P1", got.Provider)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegisterRejectsInvalid(t *testing.T) {
	r := New(zap.NewNop())
	err := r.Register(model.Definition{})
	assert.Error(t, err)
}

func TestRegisterPreservesPositionOnReplace(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))
	require.NoError(t, r.Register(fastModel("b", "P2")))
	require.NoError(t, r.Register(fastModel("a", "P1-updated")))

	list := r.List(nil, nil)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "P1-updated", list[0].Provider)
	assert.Equal(t, "b", list[1].ID)
}

func TestListInsertionOrder(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))
	require.NoError(t, r.Register(fastModel("b", "P2")))
	require.NoError(t, r.Register(fastModel("c", "P3")))

	list := r.List(nil, nil)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestListFiltersByTier(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))
	smart := fastModel("b", "P2")
	smart.Tier = model.TierSmart
	require.NoError(t, r.Register(smart))

	tier := model.TierSmart
	list := r.List(&tier, nil)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestListFiltersByDomainCaseInsensitive(t *testing.T) {
	r := New(zap.NewNop())
	medical := fastModel("a", "P1")
	medical.Domain = "Medical"
	require.NoError(t, r.Register(medical))
	require.NoError(t, r.Register(fastModel("b", "P2")))

	domain := "medical"
	list := r.List(nil, &domain)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestListDomainFilterExcludesEmptyDomain(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))

	domain := "medical"
	list := r.List(nil, &domain)
	assert.Empty(t, list)
}

func TestRegisterManyNeverShrinksOnPartialFailure(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))

	err := r.RegisterMany([]model.Definition{fastModel("b", "P2"), {}})
	assert.Error(t, err)

	list := r.List(nil, nil)
	assert.Len(t, list, 2)
}

func TestClear(t *testing.T) {
	r := New(zap.NewNop())
	require.NoError(t, r.Register(fastModel("a", "P1")))
	r.Clear()
	assert.Empty(t, r.List(nil, nil))
}
