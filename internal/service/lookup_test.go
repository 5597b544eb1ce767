package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIdentifier(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"P000123", "P000123"},
		{"  P000123 ", "P000123"},
		{"http://example.com/ps/P000123", "P000123"},
		{"https://clinic.example/patient/P000123", "P000123"},
		{"https://clinic.example/patient/P000123?src=scan", "P000123"},
		{"not-a-url/P1", "not-a-url/P1"},
	}
	for _, tc := range cases {
		got, err := ExtractIdentifier(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestExtractIdentifier_Errors(t *testing.T) {
	_, err := ExtractIdentifier("   ")
	assert.ErrorIs(t, err, ErrEmptyLookup)

	_, err = ExtractIdentifier("http://example.com/ps/")
	assert.ErrorIs(t, err, ErrInvalidLookupURL)

	_, err = ExtractIdentifier("http//broken")
	assert.ErrorIs(t, err, ErrInvalidLookupURL)

	_, err = ExtractIdentifier("http://%zz")
	assert.ErrorIs(t, err, ErrInvalidLookupURL)
}

func TestPatientLinks(t *testing.T) {
	assert.Equal(t, "https://clinic.example/patient/P000123", PatientLink("https://clinic.example/", "P000123"))
	assert.Equal(t, "https://clinic.example/ps/P000123", ShortPatientLink("https://clinic.example", "P000123"))

	id, err := ExtractIdentifier(ShortPatientLink("https://clinic.example", "P000123"))
	require.NoError(t, err)
	assert.Equal(t, "P000123", id)
}
