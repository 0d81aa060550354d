package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"Mañana", "manana"},
		{"SÁBADO", "sabado"},
		{"Pucón", "pucon"},
		{"¿Cuánto cuesta?", "¿cuanto cuesta?"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestNormalizeDigits(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"1️⃣", "1"},
		{"2⃣", "2"},
		{"1️⃣8️⃣", "18"},
		{"🔟", "10"},
		{"5 y 7️⃣", "5 y 7"},
		{"hola", "hola"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDigits(tt.input), tt.input)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "quiero reservar el sabado", Normalize("  Quiero   reservar el\tSÁBADO "))
	assert.Equal(t, "3", Normalize("3️⃣"))
}

func TestWordsAndHasWord(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"hablar", "con", "tomas"}, Words("hablar con tomas!"))
	assert.True(t, HasWord("necesito ayuda, por favor", "ayuda"))
	assert.False(t, HasWord("ayudante", "ayuda"))
	assert.Empty(t, Words("?!"))
}

func TestContainsAny(t *testing.T) {
	t.Parallel()
	assert.True(t, ContainsAny("ver carrito", "carro", "carrito"))
	assert.False(t, ContainsAny("hola", "chao", ""))
}

func TestIsNumeric(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid digits", "123456", true},
		{"Menu digit", "3", true},
		{"Empty string", "", false},
		{"Contains letter", "123a456", false},
		{"Contains space", "123 456", false},
		{"Special chars", "15:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsNumeric(tt.input))
		})
	}
}

func TestDigitizeNumbers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"para dos personas", "para 2 personas"},
		{"somos veintiuno", "somos 21"},
		{"dieciseis y tres", "16 y 3"},
		{"doscientos", "doscientos"},
		{"uno", "uno"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DigitizeNumbers(tt.input), tt.input)
	}
}
