package filestore_test

import (
	"regexp"
	"testing"

	"github.com/docvault/docnode/internal/errors"
	"github.com/docvault/docnode/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStorageKey(t *testing.T) {
	tests := []struct {
		name         string
		originalName string
		pattern      string
	}{
		{
			name:         "simple name keeps extension",
			originalName: "report.pdf",
			pattern:      `^report_\d+\.pdf$`,
		},
		{
			name:         "spaces are sanitized",
			originalName: "quarterly report 2026.xlsx",
			pattern:      `^quarterly_report_2026_\d+\.xlsx$`,
		},
		{
			name:         "path components are stripped",
			originalName: "../../etc/passwd",
			pattern:      `^passwd_\d+$`,
		},
		{
			name:         "dotfile keeps its name",
			originalName: ".env",
			pattern:      `^\.env_\d+$`,
		},
		{
			name:         "no extension",
			originalName: "README",
			pattern:      `^README_\d+$`,
		},
		{
			name:         "special characters become underscores",
			originalName: "inv#oice (final).pdf",
			pattern:      `^inv_oice__final__\d+\.pdf$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := filestore.GenerateStorageKey(tt.originalName)
			require.NoError(t, err)
			assert.Regexp(t, regexp.MustCompile(tt.pattern), key)
		})
	}
}

func TestGenerateStorageKey_Empty(t *testing.T) {
	for _, name := range []string{"", "   ", "."} {
		_, err := filestore.GenerateStorageKey(name)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidFileName, errors.GetCode(err))
	}
}

func TestGenerateStorageKey_Unique(t *testing.T) {
	a, err := filestore.GenerateStorageKey("report.pdf")
	require.NoError(t, err)
	b, err := filestore.GenerateStorageKey("report.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
