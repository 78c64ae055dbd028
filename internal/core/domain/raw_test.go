package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawDocument_FallbackTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/docs/readme.txt", "readme"},
		{"/docs/release-notes.txt", "release notes"},
		{"/docs/user__guide.txt", "user guide"},
		{"/docs/v1.2-notes.log", "v1.2 notes"},
		{"/docs/getting_started-guide.md", "getting started guide"},
		{"noext", "noext"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			raw := &RawDocument{Source: NewSourceDocument(tt.path)}
			assert.Equal(t, tt.want, raw.FallbackTitle())
		})
	}
}
