package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	th, err := Parse(strings.NewReader(`
# comment
Name: Custom
Selection: #FF0000
badgebacking: #00000080
Unknown: #FFFFFF
`))
	require.NoError(t, err)
	assert.Equal(t, "Custom", th.Name)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, th.Selection)
	assert.Equal(t, color.RGBA{0, 0, 0, 128}, th.BadgeBacking)
	assert.Equal(t, Default().Redaction, th.Redaction)
}

func TestParseRejectsBadColor(t *testing.T) {
	_, err := Parse(strings.NewReader("Selection: red\n"))
	assert.Error(t, err)
	_, err = Parse(strings.NewReader("Selection: #12345\n"))
	assert.Error(t, err)
}

func TestStringRoundTrips(t *testing.T) {
	th := Default()
	th.Name = "rt"
	th.Selection = color.RGBA{1, 2, 3, 4}
	back, err := Parse(strings.NewReader(th.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(th, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedThemesMatchDefault(t *testing.T) {
	l := &Loader{}
	th, err := l.Load("default")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), th); diff != "" {
		t.Fatalf("embedded default differs (-want +got):\n%s", diff)
	}

	dark, err := l.Load("Dark")
	require.NoError(t, err)
	assert.Equal(t, "Dark", dark.Name)
}

func TestLoaderOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.theme"), []byte("Name: FromDir\n"), 0o644))

	custom := Default()
	custom.Name = "FromConfig"
	l := &Loader{ConfigDir: dir, Custom: map[string]*Theme{"cfg": custom}}

	th, err := l.Load("cfg")
	require.NoError(t, err)
	assert.Equal(t, "FromConfig", th.Name)

	th, err = l.Load("mine")
	require.NoError(t, err)
	assert.Equal(t, "FromDir", th.Name)

	th, err = l.Load(filepath.Join(dir, "mine.theme"))
	require.NoError(t, err)
	assert.Equal(t, "FromDir", th.Name)

	_, err = l.Load("missing")
	assert.Error(t, err)
	assert.Equal(t, "Default", l.Resolve("missing").Name)
}
