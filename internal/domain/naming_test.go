package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"City of Antipolo", "CITYOFANTIPOLO"},
		{"  antipolo  ", "ANTIPOLO"},
		{"San Roque (Pob.)", "SANROQUE"},
		{"San Roque (Pob)", "SANROQUE"},
		{"Pob. San Isidro", "SANISIDRO"},
		{"Sto. Niño", "STONINO"},
		{"Santo Niño", "SANTONINO"},
		{"Barangay 1-A", "BARANGAY1A"},
		{"San Roque Poblacion", "SANROQUE"},
		{"Poblacion (San Roque)", "SANROQUE"},
		{"Poblacion", "POBLACION"},
		{"Pob.", "POB"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"City of Antipolo", "San Roque (Pob.)", "Santo Niño", "PO B", "Pob. Pob",
		"dela Paz", "Mayamot", "Barangay 1-A", "P.O.B", "Pob.", "ÑAÑO", "x POB y",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
	}
}

func TestNormalizeName_OnlyKeyRunes(t *testing.T) {
	out := NormalizeName("Bagong Nayon (Pob.), Rizal ★ 4th District")
	for _, r := range out {
		assert.True(t, isKeyRune(r), "unexpected rune %q in %q", r, out)
	}
}

func TestAliasTable_Expand(t *testing.T) {
	table := DefaultAliasTable()

	assert.Equal(t, AliasTableVersion, table.Version)
	assert.Equal(t, []string{"CITYOFANTIPOLO", "ANTIPOLOCITY", "ANTIPOLO"}, table.Expand("ANTIPOLO"))
	assert.Equal(t, []string{"CITYOFANTIPOLO", "ANTIPOLOCITY", "ANTIPOLO"}, table.Expand("CITYOFANTIPOLO"))
	assert.Equal(t, []string{"CAINTA"}, table.Expand("CAINTA"))
	assert.Nil(t, table.Expand("MORONG"))
}

func TestAliasTable_DeduplicatesAfterNormalization(t *testing.T) {
	table := NewAliasTable("test", map[string][]string{
		"San Mateo": {"SAN MATEO", "san mateo", "San-Mateo", ""},
	})

	assert.Equal(t, []string{"SANMATEO"}, table.Expand("SANMATEO"))
}

func TestAliasTable_NilIsEmpty(t *testing.T) {
	var table *AliasTable
	assert.Nil(t, table.Expand("ANTIPOLO"))
}
