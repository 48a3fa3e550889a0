package assert

import (
	"testing"

	testify "github.com/stretchr/testify/assert"
)

func TestLength(t *testing.T) {
	testify.NotPanics(t, func() { Length("abcd", 4) })
	testify.PanicsWithValue(t, "assert.Length expected 3 actual 4", func() { Length("abcd", 3) })
}

func TestNotEmpty(t *testing.T) {
	testify.NotPanics(t, func() { NotEmpty("x", "secret") })
	testify.PanicsWithValue(t, "assert.NotEmpty secret is empty", func() { NotEmpty("", "secret") })
}
