// Package annotate builds the shapes placed by the one-click canvas tools.
package annotate

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"markup/internal/domain"
)

// StickerSize is the edge length of a placed sticker.
const StickerSize = 64

type dateFormat func(time.Time) string

var englishMonths = [...]string{"January", "February", "March", "April", "May", "June", "July",
	"August", "September", "October", "November", "December"}

var germanMonths = [...]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli",
	"August", "September", "Oktober", "November", "Dezember"}

var frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet",
	"août", "septembre", "octobre", "novembre", "décembre"}

// supported lists the long date formats we render, matched against the
// configured locale. The first entry is the fallback.
var supported = []struct {
	tag    language.Tag
	format dateFormat
}{
	{language.Korean, func(t time.Time) string {
		return fmt.Sprintf("%d년 %d월 %d일", t.Year(), t.Month(), t.Day())
	}},
	{language.AmericanEnglish, func(t time.Time) string {
		return fmt.Sprintf("%s %d, %d", englishMonths[t.Month()-1], t.Day(), t.Year())
	}},
	{language.BritishEnglish, func(t time.Time) string {
		return fmt.Sprintf("%d %s %d", t.Day(), englishMonths[t.Month()-1], t.Year())
	}},
	{language.Japanese, func(t time.Time) string {
		return fmt.Sprintf("%d年%d月%d日", t.Year(), t.Month(), t.Day())
	}},
	{language.SimplifiedChinese, func(t time.Time) string {
		return fmt.Sprintf("%d年%d月%d日", t.Year(), t.Month(), t.Day())
	}},
	{language.German, func(t time.Time) string {
		return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[t.Month()-1], t.Year())
	}},
	{language.French, func(t time.Time) string {
		return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
	}},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = s.tag
	}
	return language.NewMatcher(tags)
}()

// LongDate formats t as a long date for locale, e.g. "2024년 3월 5일" for
// ko-KR. Unknown locales fall back to Korean.
func LongDate(t time.Time, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return supported[0].format(t)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		idx = 0
	}
	return supported[idx].format(t)
}

// DateStamp returns a text shape holding today's date, placed offset
// up and to the left of the pointer.
func DateStamp(now time.Time, locale string, at domain.Vec, offset float64) domain.Shape {
	return domain.Shape{
		ID:       domain.NewShapeID(),
		Type:     domain.ShapeTypeText,
		ParentID: domain.CanvasPageID,
		X:        at.X - offset,
		Y:        at.Y - offset,
		Props:    map[string]any{"text": LongDate(now, locale)},
	}
}

// Sticker returns a heart sticker centred on the pointer.
func Sticker(at domain.Vec) domain.Shape {
	return domain.Shape{
		ID:       domain.NewShapeID(),
		Type:     domain.ShapeTypeSticker,
		ParentID: domain.CanvasPageID,
		X:        at.X - StickerSize/2,
		Y:        at.Y - StickerSize/2,
		W:        StickerSize,
		H:        StickerSize,
		Props:    map[string]any{"color": "red"},
	}
}
