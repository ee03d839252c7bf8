package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromGOOS(t *testing.T) {
	cases := []struct {
		goos string
		want Platform
	}{
		{"windows", Windows},
		{"linux", Linux},
		{"darwin", Darwin},
		{"freebsd", Other},
		{"", Other},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FromGOOS(c.goos), "goos %q", c.goos)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "Windows", Windows.Name())
	assert.Equal(t, "Linux", Linux.Name())
	assert.Equal(t, "Darwin", Darwin.Name())
	assert.Equal(t, "Other", Other.Name())
	assert.Equal(t, "Linux", Linux.String())
}
