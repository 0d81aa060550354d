package lodging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  bool
	}{
		{"tienen alojamiento?", true},
		{"Cabañas cerca", true},
		{"algún HOTEL recomendado", true},
		{"dónde dormir en Pucón", true},
		{"el domo con hidromasaje", true},
		{"cuánto cuesta", false},
		{"quiero reservar", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.input), tt.input)
	}
}

func TestPayload(t *testing.T) {
	t.Parallel()
	items := Payload(nil)

	// Two headers, six options, one footer.
	require.Len(t, items, 9)
	assert.Equal(t, KindText, items[0].Kind)
	assert.Equal(t, KindImage, items[1].Kind)
	assert.Contains(t, items[1].Caption, "Open Sky - Domo con Tina de Baño")
	assert.Contains(t, items[1].Caption, "$100,000 / noche (2 pers.)")
	assert.Equal(t, KindText, items[3].Kind)
	assert.Contains(t, items[7].Caption, "por persona")
	assert.Contains(t, items[8].Text, "Cómo funciona")
}

func TestPayload_MissingImageFallsBackToText(t *testing.T) {
	t.Parallel()
	items := Payload(Images{"relikura_hostel": "https://cdn.example.com/hostel.jpg"})

	var images int
	for _, it := range items {
		if it.Kind == KindImage {
			images++
			assert.True(t, strings.HasPrefix(it.ImageURL, "https://"))
		}
	}
	assert.Equal(t, 1, images)
}

func TestOptions(t *testing.T) {
	t.Parallel()
	opts := Options()
	require.Len(t, opts, 6)
	for _, o := range opts {
		assert.NotEmpty(t, DefaultImages[o.Key], o.Key)
	}
}
