package requirements_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

func TestParseBasic(t *testing.T) {
	input := `
# core
Django==4.2
requests

typing_extensions==4.8.0
`
	reqs, err := requirements.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	assert.Equal(t, "django", reqs[0].Name)
	require.NotNil(t, reqs[0].Version)
	assert.Equal(t, model.Version("4.2"), *reqs[0].Version)

	assert.Equal(t, "requests", reqs[1].Name)
	assert.Nil(t, reqs[1].Version)

	assert.Equal(t, "typing-extensions", reqs[2].Name)
}

func TestParsePreservesOrder(t *testing.T) {
	reqs, err := requirements.Parse(strings.NewReader("zzz\naaa\nmmm\n"))
	require.NoError(t, err)
	var names []string
	for _, r := range reqs {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"zzz", "aaa", "mmm"}, names)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := requirements.Parse(strings.NewReader("requests\nRequests==2.31\n"))
	assert.True(t, errors.Is(err, errclass.ErrMalformedRequirement))
}

func TestParseRejectsMalformedLines(t *testing.T) {
	for _, bad := range []string{
		"requests>=2.0",
		"requests<=2.0",
		"requests~=2.0",
		"requests==",
		"requests==2.0==3.0",
		"two words",
	} {
		_, err := requirements.Parse(strings.NewReader(bad))
		assert.True(t, errors.Is(err, errclass.ErrMalformedRequirement), "expected malformed for %q", bad)
	}
}

func TestParseWholeFileFailsOnOneBadLine(t *testing.T) {
	_, err := requirements.Parse(strings.NewReader("good==1.0\nbad>=2.0\nalso-good\n"))
	assert.True(t, errors.Is(err, errclass.ErrMalformedRequirement))
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo==1.0\n"), 0644))

	reqs, err := requirements.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "foo==1.0", reqs[0].String())
}
