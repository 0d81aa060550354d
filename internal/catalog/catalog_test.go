package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceForPartySize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n    int
		want int
	}{
		{2, 69990},
		{3, 54990},
		{4, 44990},
		{5, 38990},
		{6, 32990},
		{7, 29990},
		{1, DefaultPricePerPerson},
		{8, DefaultPricePerPerson},
		{0, DefaultPricePerPerson},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriceForPartySize(tt.n), "party of %d", tt.n)
	}
}

func TestValidPartySize(t *testing.T) {
	t.Parallel()
	assert.False(t, ValidPartySize(1))
	assert.True(t, ValidPartySize(2))
	assert.True(t, ValidPartySize(7))
	assert.False(t, ValidPartySize(8))
}

func TestLookupExtra(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"quiero una tabla 4 personas", TablaGrande.Key},
		{"agregar tabla grande", TablaGrande.Key},
		{"una tabla por favor", TablaPequena.Key},
		{"tabla pequeña", TablaPequena.Key},
		{"Jugo natural de piña", JugoNatural.Key},
		{"una bebida", LataBebida.Key},
		{"agua", AguaMineral.Key},
		{"helado", Helado.Key},
		{"modo romántico", ModoRomantico.Key},
		{"el pack nocturno con velas", PackNocturno.Key},
		{"velas", Velas.Key},
		{"video de 60", Video60.Key},
		{"un video", Video15.Key},
		{"toalla poncho", ToallaPoncho.Key},
		{"toallas", ToallaNormal.Key},
		{"chalas", Chalas.Key},
		{"Reserva FLEX", ReservaFlex.Key},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := LookupExtra(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Key)
		})
	}

	_, ok := LookupExtra("hola capitán")
	assert.False(t, ok)
}

func TestSynonymOrderIsRankThenLength(t *testing.T) {
	t.Parallel()
	for i := 1; i < len(synonyms); i++ {
		prev, cur := synonyms[i-1], synonyms[i]
		if prev.rank == cur.rank {
			assert.GreaterOrEqual(t, len(prev.text), len(cur.text), "%q before %q", prev.text, cur.text)
		} else {
			assert.Greater(t, prev.rank, cur.rank)
		}
	}
}

func TestExtractExtras(t *testing.T) {
	t.Parallel()

	got := ExtractExtras("quiero 2 jugos y 3x helados, una tabla grande")
	require.Len(t, got, 3)
	assert.Equal(t, JugoNatural.Key, got[0].Extra.Key)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, Helado.Key, got[1].Extra.Key)
	assert.Equal(t, 3, got[1].Quantity)
	assert.Equal(t, TablaGrande.Key, got[2].Extra.Key)
	assert.Equal(t, 1, got[2].Quantity)

	got = ExtractExtras("dos aguas y una toalla poncho")
	require.Len(t, got, 2)
	assert.Equal(t, AguaMineral.Key, got[0].Extra.Key)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, ToallaPoncho.Key, got[1].Extra.Key)

	assert.Empty(t, ExtractExtras("hola"))
}

func TestExtraByNumber(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 17, MenuSize())

	for n := 1; n <= MenuSize(); n++ {
		e, ok := ExtraByNumber(n)
		require.True(t, ok)
		assert.Equal(t, n, e.Number)
	}

	e, _ := ExtraByNumber(6)
	assert.True(t, e.NeedsFlavor)
	e, _ = ExtraByNumber(17)
	assert.True(t, e.Flex)
	e, _ = ExtraByNumber(10)
	assert.Equal(t, PackNocturno.Key, e.Key)

	_, ok := ExtraByNumber(0)
	assert.False(t, ok)
	_, ok = ExtraByNumber(18)
	assert.False(t, ok)
}

func TestFlavors(t *testing.T) {
	t.Parallel()

	f, ok := ParseFlavor("1️⃣")
	require.True(t, ok)
	assert.Equal(t, FlavorCookies, f)

	f, ok = ParseFlavor("Frambuesa")
	require.True(t, ok)
	assert.Equal(t, FlavorFrambuesa, f)

	_, ok = ParseFlavor("vainilla")
	assert.False(t, ok)

	e := WithFlavor(FlavorCookies)
	assert.Equal(t, "Helado Individual (Cookies & Cream)", e.Name)
	assert.Equal(t, 3500, e.Price)
	assert.False(t, e.NeedsFlavor)
}

func TestFlexPolicyAmount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		subtotal int
		want     int
	}{
		{0, 0},
		{-5, 0},
		{139980, 13998},
		{164970, 16497},
		{15, 2}, // 1.5 rounds half away from zero
		{14, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultFlex.Amount(tt.subtotal), "subtotal %d", tt.subtotal)
	}
	assert.Zero(t, FlexPolicy{}.Amount(1000))
}
