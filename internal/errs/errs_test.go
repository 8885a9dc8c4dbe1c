package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := Parse("checksum", "/tmp/x.ibd", 3, "short page header", nil)
	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrIO))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := IO("tablespace.open", "/tmp/x.ibd", cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrorMessage(t *testing.T) {
	err := Argument("repair", "unknown algorithm \"xyz\"")
	assert.Contains(t, err.Error(), "repair")
	assert.Contains(t, err.Error(), "unknown algorithm")
}
