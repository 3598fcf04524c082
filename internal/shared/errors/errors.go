package errors

import (
	"errors"

	"github.com/samber/lo"
	"github.com/samber/oops"
)

var (
	ErrFeedNotFound       = errors.New("feed not found")
	ErrUnsupportedDriver  = errors.New("unsupported database driver")
	ErrUnauthorized       = errors.New("unauthorized user")
	ErrBotTokenNotDefined = errors.New("telegram bot token is not configured")
)

// Kind classifies an export failure for the transports.
type Kind int

const (
	KindUnclassified Kind = iota
	KindValidation
	KindNotFound
)

// Business codes carried as oops codes. 400xx are validation failures,
// 404xx are not-found failures.
const (
	CodeInvalidDate     = 40001
	CodeInvalidSelector = 40002
	CodeNoArticles      = 40401
	CodeFeedNotFound    = 40402
	CodeTagNotFound     = 40403
	CodeTagsWithoutFeed = 40404
)

// KindOf derives the kind from an oops code.
func KindOf(code any) Kind {
	c, ok := code.(int)
	if !ok {
		return KindUnclassified
	}
	switch c / 100 {
	case 400:
		return KindValidation
	case 404:
		return KindNotFound
	default:
		return KindUnclassified
	}
}

// PublicKeys are the context keys reported back to callers.
var PublicKeys = []string{"feed_id", "tag_ids"}

// Classified returns the oops error and its kind when err carries a
// business code somewhere in its chain.
func Classified(err error) (oops.OopsError, Kind, bool) {
	oe, ok := oops.AsOops(err)
	if !ok {
		return oops.OopsError{}, KindUnclassified, false
	}
	kind := KindOf(oe.Code())
	if kind == KindUnclassified {
		return oops.OopsError{}, KindUnclassified, false
	}
	return oe, kind, true
}

// Data returns the public part of the error context, nil when empty.
func Data(oe oops.OopsError) map[string]any {
	data := lo.PickByKeys(oe.Context(), PublicKeys)
	if len(data) == 0 {
		return nil
	}
	return data
}
