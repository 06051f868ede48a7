package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcaluminis-ftdi/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestConvertRGBFromConfig(t *testing.T) {
	p := writeConfig(t, "white_algorithm: wled_auto\n")

	a, c, err := convertRGB([]string{"-config", p, "200", "100", "50"})
	require.NoError(t, err)
	assert.Equal(t, model.WLEDAuto, a)
	assert.Equal(t, model.RGBW{R: 200, G: 100, B: 50, W: 50}, c)
}

func TestConvertRGBCalibrationFromConfig(t *testing.T) {
	p := writeConfig(t, `
white_algorithm: sub_min_custom_adjust
calibration: {f1: 1, f2: 1, f3: 1}
`)
	a, c, err := convertRGB([]string{"-config", p, "200", "100", "50"})
	require.NoError(t, err)
	assert.Equal(t, model.SubMinCustomAdjust, a)
	assert.Equal(t, model.RGBW{R: 150, G: 50, B: 0, W: 50}, c)

	// flags win over the file
	_, c, err = convertRGB([]string{"-config", p, "-f3", "2", "200", "100", "50"})
	require.NoError(t, err)
	assert.Equal(t, model.RGBW{R: 100, G: 0, B: 0, W: 100}, c)
}

func TestConvertRGBFlags(t *testing.T) {
	a, c, err := convertRGB([]string{"-algorithm", "subtract_minimum", "200", "100", "50"})
	require.NoError(t, err)
	assert.Equal(t, model.SubtractMinimum, a)
	assert.Equal(t, model.RGBW{R: 150, G: 50, B: 0, W: 50}, c)

	_, _, err = convertRGB([]string{"-algorithm", "warm", "1", "2", "3"})
	assert.ErrorIs(t, err, model.ErrInvalidWhiteAlgorithm)
	_, _, err = convertRGB([]string{"1", "2"})
	assert.Error(t, err)
}

func TestConvertRGBDefaultsOff(t *testing.T) {
	a, c, err := convertRGB([]string{"200", "100", "50"})
	require.NoError(t, err)
	assert.Equal(t, model.WhiteOff, a)
	assert.Equal(t, model.RGBW{R: 200, G: 100, B: 50}, c)
}
