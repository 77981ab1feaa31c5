package csvparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tskit/internal/domain"
)

func TestParseCSV(t *testing.T) {
	data := "\xEF\xBB\xBFContext,Source,Comment,Translation,Status\n" +
		"Brewtarget,EBC,,EBC,finished\n" +
		"BtLabel,Color (%1),,,unfinished\n" +
		"Brewtarget,SRM,,SRM,\n" +
		"mainWindow,\"Save\nAs\",menu,\"Desa\ncom\",\n"
	p := New()
	p.Language = "ca"
	res, err := p.Parse([]byte(data))
	require.NoError(t, err)

	c := res.Catalog
	assert.Equal(t, "ca", c.Language)
	require.Len(t, c.Contexts, 3)
	bt := c.Context("Brewtarget")
	require.Len(t, bt.Messages, 2)
	assert.Equal(t, domain.StatusFinished, bt.Messages[1].Status)

	color := c.Context("BtLabel").Messages[0]
	assert.Equal(t, "Color (%1)", color.Source)
	assert.Equal(t, domain.StatusUnfinished, color.Status)

	save := c.Context("mainWindow").Messages[0]
	assert.Equal(t, "Save\nAs", save.Source)
	assert.Equal(t, "menu", save.Comment)
	assert.Equal(t, "Desa\ncom", save.Translation)
}

func TestParseCSVSemicolonAndAliases(t *testing.T) {
	data := "context;text;translation\nHop;Alpha;Alfa\nHop;Beta;\n"
	res, err := New().Parse([]byte(data))
	require.NoError(t, err)
	hop := res.Catalog.Context("Hop")
	require.NotNil(t, hop)
	require.Len(t, hop.Messages, 2)
	assert.Equal(t, "Alfa", hop.Messages[0].Translation)
	assert.Equal(t, domain.StatusFinished, hop.Messages[0].Status)
	assert.Equal(t, domain.StatusUnfinished, hop.Messages[1].Status)
}

func TestParseCSVErrors(t *testing.T) {
	_, err := New().Parse([]byte("source,translation\nA,B\n"))
	assert.ErrorContains(t, err, "missing 'context' column")

	_, err = New().Parse([]byte("context,translation\nA,B\n"))
	assert.ErrorContains(t, err, "missing source column")

	_, err = New().Parse([]byte("context,source,status\nA,B,done\n"))
	var pe *domain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
}
