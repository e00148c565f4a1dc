package mrz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOk bool
	}{
		{"six digits unchanged", "900101", "900101", true},
		{"six digits out of range unchanged", "991399", "991399", true},
		{"surrounding whitespace trimmed", "  900101\t", "900101", true},
		{"compact year drops century", "19900101", "900101", true},
		{"iso drops century", "1990-01-01", "900101", true},
		{"iso future expiry", "2030-01-01", "300101", true},
		{"leap day", "2024-02-29", "240229", true},
		{"invalid leap day", "2023-02-29", "", false},
		{"compact month out of range", "19901301", "", false},
		{"iso day out of range", "1990-01-32", "", false},
		{"empty", "", "", false},
		{"only whitespace", "   ", "", false},
		{"seven digits", "9001011", "", false},
		{"dotted is not accepted", "01.01.1990", "", false},
		{"letters", "AB0101", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.input)
			require.Equal(t, tt.wantOk, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDateIdentityOnSixDigits(t *testing.T) {
	for _, s := range []string{"000000", "123456", "991231", "500101", "490101"} {
		got, ok := NormalizeDate(s)
		require.True(t, ok, s)
		require.Equal(t, s, got)
	}
}

func TestNormalizeDateISOInputDropsCentury(t *testing.T) {
	for year := 1950; year <= 2049; year += 7 {
		input := fmt.Sprintf("%04d-06-15", year)
		got, ok := NormalizeDate(input)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("%02d0615", year%100), got)
	}
}

func TestNormalizeDateISO(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOk bool
	}{
		{"iso unchanged", "1990-01-01", "1990-01-01", true},
		{"dotted converted", "15.03.2030", "2030-03-15", true},
		{"compact converted", "19900101", "1990-01-01", true},
		{"six digits pivot to 1900s", "900101", "1990-01-01", true},
		{"pivot boundary 50", "500101", "1950-01-01", true},
		{"pivot boundary 49", "490101", "2049-01-01", true},
		{"six digits pivot to 2000s", "300101", "2030-01-01", true},
		{"invalid dotted kept", "32.01.2030", "32.01.2030", true},
		{"invalid compact kept", "19901301", "19901301", true},
		{"unknown shape kept trimmed", "  Jan 1 1990 ", "Jan 1 1990", true},
		{"empty", "", "", false},
		{"whitespace", " \n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDateISO(tt.input)
			require.Equal(t, tt.wantOk, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
