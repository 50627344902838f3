package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestConvertCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"to-human", []string{"convert", "to-human", "1500000000000000000", "--decimals", "18"}, "1.5"},
		{"to-human zero", []string{"convert", "to-human", "0", "--decimals", "18"}, "0"},
		{"to-human six decimals", []string{"convert", "to-human", "1000001", "--decimals", "6"}, "1.000001"},
		{"parse", []string{"convert", "parse", "0.5", "--decimals", "18"}, "500000000000000000"},
		{"to-fiat", []string{"convert", "to-fiat", "2000000000000000000", "--decimals", "18", "--rate", "150.25"}, "$300.50"},
		{"to-fiat euro", []string{
			"convert", "to-fiat", "1000100000000000000000", "--decimals", "18", "--rate", "1",
			"--symbol", "€", "--thousands-separator", ".", "--decimal-separator", ",",
		}, "€1.000,10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestConvertRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"over-precision", []string{"convert", "parse", "0.0000001", "--decimals", "6"}},
		{"negative", []string{"convert", "parse", "-1", "--decimals", "18"}},
		{"fractional base units", []string{"convert", "to-human", "1.5", "--decimals", "18"}},
		{"zero rate", []string{"convert", "to-fiat", "1", "--decimals", "18", "--rate", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "guild-dashboard dev")
}
