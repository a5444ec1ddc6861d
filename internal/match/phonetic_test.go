package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoundex(t *testing.T) {
	cases := []struct {
		token string
		want  string
	}{
		{"Robert", "R163"},
		{"Rupert", "R163"},
		{"Ashcraft", "A261"},
		{"Ashcroft", "A261"},
		{"Tymczak", "T522"},
		{"Pfister", "P236"},
		{"laravel", "L614"},
		{"laravl", "L614"},
		{"a", "A000"},
		{"", ""},
		{"123", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, soundex(tc.token), "soundex(%q)", tc.token)
	}
}

func TestSoundexCaseInsensitive(t *testing.T) {
	assert.Equal(t, soundex("robert"), soundex("ROBERT"))
}

func TestPhoneticMatch(t *testing.T) {
	assert.True(t, phoneticMatch("fonetic", "phonetic algorithms"))
	assert.True(t, phoneticMatch("smith", "john smyth"))
	assert.False(t, phoneticMatch("apple", "orange banana"))
	assert.False(t, phoneticMatch("", "anything"))
}
