package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wemprss/article-exporter/internal/modules/export/domain"
)

const (
	// FilenamePrefix starts every export filename.
	FilenamePrefix = "星火选题库_"
	// FilenameExtension ends every export filename.
	FilenameExtension = ".docx"
	// MaxFilenameLength is counted in characters, not bytes.
	MaxFilenameLength = 100
	// PlaceholderLabel replaces a label with nothing printable left.
	PlaceholderLabel = "未命名"
	// Ellipsis marks a label shortened to fit MaxFilenameLength.
	Ellipsis = "…"
)

var illegalFilenameChars = strings.NewReplacer(
	`\`, "_", `/`, "_", `:`, "_", `*`, "_", `?`, "_",
	`"`, "_", `<`, "_", `>`, "_", `|`, "_",
)

// SanitizeLabel makes label safe for file systems and download headers.
// A label made only of illegal characters becomes PlaceholderLabel.
func SanitizeLabel(label string) string {
	s := illegalFilenameChars.Replace(label)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.'
	})
	if strings.Trim(s, "_") == "" {
		return PlaceholderLabel
	}
	return s
}

// BuildFilename composes the download name for a label and the publish
// times of the first and last exported articles.
func BuildFilename(label string, first, last time.Time) string {
	return buildFilename(label, first, last, MaxFilenameLength)
}

func buildFilename(label string, first, last time.Time, maxLen int) string {
	dates := fmt.Sprintf("(%s_%s)",
		first.In(domain.DisplayZone).Format("01.02"),
		last.In(domain.DisplayZone).Format("01.02"))
	fixed := FilenamePrefix + dates + FilenameExtension

	label = SanitizeLabel(label)
	name := FilenamePrefix + label + dates + FilenameExtension
	if utf8.RuneCountInString(name) <= maxLen {
		return name
	}

	room := maxLen - utf8.RuneCountInString(fixed) - utf8.RuneCountInString(Ellipsis)
	if room < 1 {
		return fixed
	}
	runes := []rune(label)
	return FilenamePrefix + string(runes[:room]) + Ellipsis + dates + FilenameExtension
}
