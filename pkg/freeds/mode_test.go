package freeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeForVersion(t *testing.T) {

	assert := assert.New(t)

	cases := []struct {
		version  string
		mode     Mode
		classify bool
	}{
		{"2.0.1", ModePolledJSON, true},
		{"v3.1", ModePolledJSON, true},
		{"12.0", ModePolledJSON, true},
		{"1.0.5", ModeWebSocket, true},
		{"V1.1.0-beta", ModeWebSocket, true},
		{"FDS-2024.03", ModePolledJSON, true},
		{"FDS_2019_b", ModeWebSocket, true},
		{"beta", ModeUnknown, false},
		{"", ModeUnknown, false},
		{"FreeDS", ModeUnknown, false},
	}

	for _, c := range cases {
		mode, ok := ModeForVersion(c.version)
		assert.Equal(c.classify, ok, "classify %q", c.version)
		assert.Equal(c.mode, mode, "mode for %q", c.version)
	}
}

func TestParseMode(t *testing.T) {

	assert := assert.New(t)

	for _, m := range []Mode{ModeUnknown, ModePolledJSON, ModeSSE, ModeWebSocket} {
		parsed, err := ParseMode(m.String())
		assert.NoError(err)
		assert.Equal(m, parsed)
	}

	mode, err := ParseMode("auto")
	assert.NoError(err)
	assert.Equal(ModeUnknown, mode)

	_, err = ParseMode("carrier-pigeon")
	assert.Error(err)
}
