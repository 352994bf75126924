package annotate_test

import (
	"testing"
	"time"

	"markup/internal/annotate"
	"markup/internal/domain"
)

func TestLongDate(t *testing.T) {
	day := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		locale string
		want   string
	}{
		{"ko-KR", "2024년 3월 5일"},
		{"ko", "2024년 3월 5일"},
		{"en-US", "March 5, 2024"},
		{"en-GB", "5 March 2024"},
		{"ja-JP", "2024年3月5日"},
		{"de-AT", "5. März 2024"},
		{"fr-CA", "5 mars 2024"},
		{"not a locale!", "2024년 3월 5일"},
	}
	for _, tt := range tests {
		if got := annotate.LongDate(day, tt.locale); got != tt.want {
			t.Errorf("LongDate(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestDateStamp(t *testing.T) {
	s := annotate.DateStamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "ko-KR", domain.Vec{X: 100, Y: 50}, 12)
	if s.Type != domain.ShapeTypeText || s.X != 88 || s.Y != 38 {
		t.Errorf("date stamp = %+v", s)
	}
	if s.Props["text"] != "2024년 1월 2일" {
		t.Errorf("text = %v", s.Props["text"])
	}
}

func TestSticker(t *testing.T) {
	s := annotate.Sticker(domain.Vec{X: 100, Y: 100})
	if s.Type != domain.ShapeTypeSticker || s.X != 68 || s.W != annotate.StickerSize {
		t.Errorf("sticker = %+v", s)
	}
}
