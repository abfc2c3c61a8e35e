package display

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want string
	}{
		{"zero", 0, "0 B"},
		{"under 1 KiB", 1023, "1023 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"exactly 1 MiB", 1024 * 1024, "1.0 MiB"},
		{"2.5 MiB", 2621440, "2.5 MiB"},
		{"exactly 1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"1 TiB", 1024 * 1024 * 1024 * 1024, "1.0 TiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBytes(tt.in)
			if got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatMegapixels(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want string
	}{
		{"tiny stays pixels", 64, 64, "64x64 px"},
		{"one megapixel", 1000, 1000, "1.0 MP"},
		{"camera tile", 2048, 2048, "4.2 MP"},
		{"wide mosaic", 9000, 7000, "63.0 MP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMegapixels(tt.w, tt.h)
			if got != tt.want {
				t.Errorf("FormatMegapixels(%d, %d) = %q, want %q", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"sub-second rounds down", 400 * time.Millisecond, "0s"},
		{"seconds only", 42 * time.Second, "42s"},
		{"minutes pad seconds", 3*time.Minute + 7*time.Second, "3m07s"},
		{"hours pad minutes", time.Hour + 12*time.Minute + 30*time.Second, "1h12m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDuration(tt.in)
			if got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
