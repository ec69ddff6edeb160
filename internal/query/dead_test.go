package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deadNames(dead []DeadSymbol) []string {
	var names []string
	for _, d := range dead {
		names = append(names, d.Symbol.File+":"+d.Symbol.Name)
	}
	return names
}

func TestDeadCodeScoresAndOrder(t *testing.T) {
	e := fixtureEngine(t, Options{})

	dead, err := e.DeadCode(DeadRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app/service.py:_cleanup",
		"cyc/a.py:validate",
		"app/service.py:Unused",
		"app/store.py:helper",
	}, deadNames(dead))

	assert.Equal(t, 1.0, dead[0].Score)
	assert.Empty(t, dead[0].Reasons)
	assert.Equal(t, 0.75, dead[2].Score)
	assert.Equal(t, []string{"name looks public"}, dead[2].Reasons)
	assert.Equal(t, 0.5, dead[3].Score)
}

func TestDeadCodeEntryPointsAndExcludes(t *testing.T) {
	e := fixtureEngine(t, Options{
		EntryPoints:  []string{"_*"},
		ExcludeFiles: []string{"cyc/**"},
	})

	dead, err := e.DeadCode(DeadRequest{EntryPoints: []string{"help*"}, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"app/service.py:Unused"}, deadNames(dead))

	dead, err = e.DeadCode(DeadRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, dead, 1)

	_, err = e.DeadCode(DeadRequest{EntryPoints: []string{"[bad"}})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestLooksPublic(t *testing.T) {
	assert.True(t, looksPublic("Handler"))
	assert.True(t, looksPublic("$Widget"))
	assert.False(t, looksPublic("handler"))
	assert.False(t, looksPublic("_Private"))
	assert.False(t, looksPublic(""))
}
