package mentions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_AddKeepsFirst(t *testing.T) {
	table := NewTable(nil)

	require.True(t, table.Add("[Sam]", "1"))
	require.False(t, table.Add("[Sam]", "2"))

	id, ok := table.Get("[Sam]")
	require.True(t, ok)
	require.Equal(t, "1", id)
	require.Equal(t, 1, table.Len())
}

func TestTable_Resolve(t *testing.T) {
	table := NewTable(map[string]string{"[Ada]": "1", "[Grace Hopper]": "2"})

	out := table.Resolve("<p>[Ada] and [Grace Hopper], again [Ada]</p>")
	require.Equal(t, "<p>{1} and {2}, again {1}</p>", out)
}

func TestTable_ResolveWithoutKeys(t *testing.T) {
	table := NewTable(map[string]string{"[Ada]": "1"})
	require.Equal(t, "plain text", table.Resolve("plain text"))
	require.Equal(t, "anything", NewTable(nil).Resolve("anything"))
}

func TestTable_MapIsCopy(t *testing.T) {
	table := NewTable(map[string]string{"[Ada]": "1"})
	m := table.Map()
	m["[Ada]"] = "changed"

	id, _ := table.Get("[Ada]")
	require.Equal(t, "1", id)
}
