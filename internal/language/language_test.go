package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		previous Lang
		want     Lang
	}{
		{"turkish letters", "2 kişilik oda, 10-12 Mayıs fiyatı nedir?", English, Turkish},
		{"ascii turkish", "merhaba, oda fiyati nedir", English, Turkish},
		{"english sentence", "Hello, I would like to book a room for two people next weekend", Turkish, English},
		{"digits keep previous", "+90 555 123 45 67", English, English},
		{"email keeps previous", "ayse@example.com", English, English},
		{"empty uses default", "", "", Default},
		{"dotted capital I", "İptal etmek istiyorum", English, Turkish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text, tt.previous))
		})
	}
}

func TestParseAndName(t *testing.T) {
	assert.Equal(t, English, Parse("EN"))
	assert.Equal(t, Turkish, Parse("tr"))
	assert.Equal(t, Default, Parse("de"))
	assert.Equal(t, "English", English.Name())
	assert.Equal(t, "Turkish", Turkish.Name())
}

func TestTextCoversEveryLanguage(t *testing.T) {
	for m := ProvidersUnavailable; m <= InternalError; m++ {
		for _, l := range []Lang{Turkish, English} {
			assert.NotEmpty(t, Text(m, l), "message %d lang %s", m, l)
		}
	}
	assert.Equal(t, Text(SessionReset, Default), Text(SessionReset, Lang("fr")))
}
