package cardconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad/volume"
)

func explicitValues() string {
	values := make([]string, volume.MaxIndex+1)
	for i := range values {
		values[i] = strconv.Itoa(-(volume.MaxIndex - i) * 40)
	}

	return "[" + strings.Join(values, ", ") + "]"
}

func TestParse(t *testing.T) {
	doc := `
[curves.Default]
type = "simple_step"
max_volume = -200
volume_step = 75

[curves.Headphone]
type = "explicit"
db_at = ` + explicitValues() + "\n"

	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	def := c.CurveForControl("Default")
	require.NotNil(t, def)
	assert.Equal(t, int64(-200), def.DB(100))
	assert.Equal(t, int64(-950), def.DB(90))

	hp := c.CurveForControl("Headphone")
	require.NotNil(t, hp)
	assert.Equal(t, int64(0), hp.DB(100))
	assert.Equal(t, int64(-4000), hp.DB(0))

	assert.Nil(t, c.CurveForControl("Speaker"))
	assert.Nil(t, c.CurveForControl(""))
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"UnknownType": "[curves.X]\ntype = \"log\"\n",
		"ZeroStep":    "[curves.X]\ntype = \"simple_step\"\n",
		"ShortTable":  "[curves.X]\ntype = \"explicit\"\ndb_at = [0, -100]\n",
		"BadToml":     "[curves.X\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(dir, "Missing")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Load("", "Missing")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "USB Audio.toml"),
		[]byte("[curves.Default]\ntype = \"simple_step\"\nvolume_step = 100\n"), 0o644))

	c, err = Load(dir, "USB Audio")
	require.NoError(t, err)
	assert.Equal(t, int64(-10000), c.CurveForControl("Default").DB(0))

	var nilConfig *Config
	assert.Nil(t, nilConfig.CurveForControl("Default"))
}
