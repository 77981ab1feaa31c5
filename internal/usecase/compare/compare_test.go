package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tsexport "tskit/internal/adapters/exporter/qtts"
	"tskit/internal/adapters/parser/qtts"
	"tskit/internal/domain"
)

func readSample(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("../../adapters/parser/qtts/testdata", name))
	require.NoError(t, err)
	return data
}

func catalog(entries ...[4]string) *domain.Catalog {
	c := domain.NewCatalog("ca")
	for _, e := range entries {
		ctx := c.EnsureContext(e[0])
		ctx.Messages = append(ctx.Messages, &domain.Message{Source: e[1], Translation: e[2], Status: domain.Status(e[3])})
	}
	return c
}

func TestRoundTripSample(t *testing.T) {
	for _, name := range []string{"bt_ca_sample.ts", "numerus.ts"} {
		res, err := RoundTrip(readSample(t, name), qtts.New(), tsexport.New())
		require.NoError(t, err)
		assert.True(t, res.Equivalent, name)
		assert.True(t, res.Identical, name)
	}
}

func TestRoundTripReformatsButStaysEquivalent(t *testing.T) {
	in := []byte(`<TS version="2.1" language="ca"><context><name>Brewtarget</name>` +
		`<message><source>EBC</source><translation>EBC</translation></message></context></TS>`)
	res, err := RoundTrip(in, qtts.New(), tsexport.New())
	require.NoError(t, err)
	assert.True(t, res.Equivalent)
	assert.False(t, res.Identical)
	assert.Contains(t, string(res.Output), "    <name>Brewtarget</name>\n")
}

func TestRoundTripParseError(t *testing.T) {
	_, err := RoundTrip([]byte("<TS>"), qtts.New(), tsexport.New())
	assert.Error(t, err)
}

func TestEquivalentIgnoresOrder(t *testing.T) {
	a := catalog([4]string{"A", "x", "1", "finished"}, [4]string{"B", "y", "", "unfinished"})
	b := catalog([4]string{"B", "y", "", "unfinished"}, [4]string{"A", "x", "1", "finished"})
	assert.True(t, Equivalent(a, b))
	assert.Len(t, Entries(a), 2)

	c := catalog([4]string{"B", "y", "", "finished"}, [4]string{"A", "x", "1", "finished"})
	assert.False(t, Equivalent(a, c))
}

func TestDiff(t *testing.T) {
	a := catalog(
		[4]string{"Brewtarget", "EBC", "EBC", "finished"},
		[4]string{"BtLabel", "Color (%1)", "", "unfinished"},
		[4]string{"Hop", "Alpha", "Alfa", "finished"},
	)
	b := catalog(
		[4]string{"Brewtarget", "EBC", "EBC", "finished"},
		[4]string{"BtLabel", "Color (%1)", "Color (%1)", "finished"},
		[4]string{"Yeast", "Attenuation", "", "unfinished"},
	)
	res, err := Diff(a, b, "old.ts", "new.ts")
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "Attenuation", res.Added[0].Source)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "Alpha", res.Removed[0].Source)
	require.Len(t, res.Changed, 1)
	assert.Equal(t, domain.StatusFinished, res.Changed[0].After.Status)
	assert.False(t, res.Empty())

	assert.Contains(t, res.Unified, "--- old.ts\n+++ new.ts\n")
	assert.Contains(t, res.Unified, `-"BtLabel" "Color (%1)" "" => "" [unfinished]`)
	assert.Contains(t, res.Unified, `+"Yeast" "Attenuation" "" => "" [unfinished]`)

	same, err := Diff(a, a, "a", "a")
	require.NoError(t, err)
	assert.True(t, same.Empty())
	assert.Empty(t, same.Unified)
}

func TestListingSortsNaturally(t *testing.T) {
	c := catalog([4]string{"Page10", "b", "", "unfinished"}, [4]string{"Page2", "a", "", "unfinished"})
	assert.Equal(t, "\"Page2\" \"a\" \"\" => \"\" [unfinished]\n\"Page10\" \"b\" \"\" => \"\" [unfinished]\n", Listing(c))
}
