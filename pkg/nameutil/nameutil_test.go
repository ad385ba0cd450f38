package nameutil_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/nameutil"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "django", nameutil.Normalize("Django"))
	assert.Equal(t, "typing-extensions", nameutil.Normalize("typing_extensions"))
	assert.Equal(t, "requests", nameutil.Normalize("  Requests "))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, name := range []string{"Django", "typing_extensions", "zope.interface"} {
		once := nameutil.Normalize(name)
		assert.Equal(t, once, nameutil.Normalize(once))
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, nameutil.Validate("requests"))
	assert.NoError(t, nameutil.Validate("zope.interface"))
	assert.NoError(t, nameutil.Validate("typing-extensions"))

	for _, bad := range []string{"", "has space", "../escape", "UPPER", "a/b"} {
		err := nameutil.Validate(bad)
		assert.True(t, errors.Is(err, errclass.ErrNameInvalid), "expected E_NAME_INVALID for %q", bad)
	}
}
