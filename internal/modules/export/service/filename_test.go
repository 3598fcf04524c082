package service

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/wemprss/article-exporter/internal/modules/export/domain"
)

var (
	jan1  = time.Date(2024, 1, 1, 0, 0, 0, 0, domain.DisplayZone)
	jan31 = time.Date(2024, 1, 31, 23, 59, 59, 0, domain.DisplayZone)
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "clean", input: "科技早报", expected: "科技早报"},
		{name: "illegal characters", input: `a\b/c:d*e?f"g<h>i|j`, expected: "a_b_c_d_e_f_g_h_i_j"},
		{name: "trailing whitespace and periods", input: "report. . \t", expected: "report"},
		{name: "leading whitespace kept", input: "  report", expected: "  report"},
		{name: "empty", input: "", expected: PlaceholderLabel},
		{name: "only periods", input: "...", expected: PlaceholderLabel},
		{name: "only illegal characters", input: `<>|?`, expected: PlaceholderLabel},
		{name: "illegal characters around text", input: `<a>`, expected: "_a_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeLabel(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, SanitizeLabel(got), "sanitizing twice changes nothing")
		})
	}
}

func TestBuildFilename(t *testing.T) {
	assert.Equal(t, "星火选题库_全部公众号(01.01_01.31).docx", BuildFilename(AllLabel, jan1, jan31))
	// dates are shown in the display zone
	utcEvening := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "星火选题库_x(03.05_03.05).docx", BuildFilename("x", utcEvening, utcEvening))
}

func TestBuildFilename_Truncates(t *testing.T) {
	label := strings.Repeat("长", 300)

	name := BuildFilename(label, jan1, jan31)

	assert.Equal(t, MaxFilenameLength, utf8.RuneCountInString(name))
	assert.True(t, strings.HasPrefix(name, FilenamePrefix+"长"))
	assert.True(t, strings.HasSuffix(name, "长"+Ellipsis+"(01.01_01.31)"+FilenameExtension))
	assert.Equal(t, 1, strings.Count(name, Ellipsis))
}

func TestBuildFilename_ExactFit(t *testing.T) {
	fixed := utf8.RuneCountInString(FilenamePrefix + "(01.01_01.31)" + FilenameExtension)
	label := strings.Repeat("a", MaxFilenameLength-fixed)

	name := BuildFilename(label, jan1, jan31)
	assert.Equal(t, MaxFilenameLength, utf8.RuneCountInString(name))
	assert.NotContains(t, name, Ellipsis)
}

func TestBuildFilename_IllegalOnlyLabel(t *testing.T) {
	label := strings.Repeat(`\/:*?"<>|`, 23)[:200]

	name := BuildFilename(label, jan1, jan31)
	assert.Equal(t, FilenamePrefix+PlaceholderLabel+"(01.01_01.31)"+FilenameExtension, name)
	assert.LessOrEqual(t, utf8.RuneCountInString(name), MaxFilenameLength)
}

func TestBuildFilename_NoRoomForLabel(t *testing.T) {
	fixed := FilenamePrefix + "(01.01_01.31)" + FilenameExtension
	maxLen := utf8.RuneCountInString(fixed) + 1

	// one slot left: not enough for a label character plus the ellipsis
	assert.Equal(t, fixed, buildFilename("label", jan1, jan31, maxLen))

	// two slots: one label character and the ellipsis
	assert.Equal(t, FilenamePrefix+"l"+Ellipsis+"(01.01_01.31)"+FilenameExtension, buildFilename("label", jan1, jan31, maxLen+1))
}
