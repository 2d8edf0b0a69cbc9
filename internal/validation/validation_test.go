package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Kind
}

func TestValidateFile_Accepts(t *testing.T) {
	for _, name := range []string{
		"report.pdf",
		"my file (1).txt",
		"a",
		"under_score-dash.tar.gz",
		strings.Repeat("x", MaxFilenameLength),
	} {
		assert.NoError(t, ValidateFile(name, 1), name)
	}
	assert.NoError(t, ValidateFile("exact.bin", MaxFileSize))
}

func TestValidateFile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		want Kind
	}{
		{"zero size", "a.txt", 0, KindEmptyFile},
		{"negative size", "a.txt", -5, KindEmptyFile},
		{"one byte over", "a.txt", MaxFileSize + 1, KindTooLarge},
		{"empty name", "", 10, KindEmptyName},
		{"whitespace name", "   \t", 10, KindEmptyName},
		{"long name", strings.Repeat("x", MaxFilenameLength+1), 10, KindNameTooLong},
		{"traversal", "../etc/passwd", 10, KindPathTraversal},
		{"double dot inside", "a..b", 10, KindPathTraversal},
		{"lt", "a<b.txt", 10, KindInvalidCharacters},
		{"quote", "it's.txt", 10, KindInvalidCharacters},
		{"backtick", "a`b", 10, KindInvalidCharacters},
		{"slash", "dir/a.txt", 10, KindInvalidCharacters},
		{"backslash", `dir\a.txt`, 10, KindInvalidCharacters},
		{"newline", "a\nb", 10, KindInvalidCharacters},
		{"carriage return", "a\rb", 10, KindInvalidCharacters},
		{"nul", "a\x00b", 10, KindInvalidCharacters},
		{"colon", "a:b.txt", 10, KindDisallowedPattern},
		{"unicode", "résumé.pdf", 10, KindDisallowedPattern},
		{"hash", "#1.txt", 10, KindDisallowedPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.file, tt.size)
			require.Error(t, err)
			assert.Equal(t, tt.want, kindOf(t, err))
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestValidateFile_SizeCheckedBeforeName(t *testing.T) {
	err := ValidateFile("../bad", MaxFileSize+1)
	assert.Equal(t, KindTooLarge, kindOf(t, err))

	err = ValidateFile("", 0)
	assert.Equal(t, KindEmptyFile, kindOf(t, err))
}

func TestValidateFile_TooLargeMessageMentionsLimit(t *testing.T) {
	err := ValidateFile("big.iso", MaxFileSize+1)
	assert.Contains(t, err.Error(), "50 MB")
}

func TestValidationError_IsMatchesKind(t *testing.T) {
	err := ValidateFile("a<b", 1)
	assert.True(t, errors.Is(err, &ValidationError{Kind: KindInvalidCharacters}))
	assert.False(t, errors.Is(err, &ValidationError{Kind: KindEmptyName}))
}

func TestValidateName_LengthCountsCharacters(t *testing.T) {
	// multibyte runes fail the pattern, not the length check
	name := strings.Repeat("é", 200)
	assert.Equal(t, KindDisallowedPattern, kindOf(t, ValidateName(name)))
}
