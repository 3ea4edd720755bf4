package bridge

import (
	"strings"
	"testing"

	"github.com/d2verb/podbridge/internal/podcast"
)

func TestEncodeList(t *testing.T) {
	tests := []struct {
		name     string
		records  []record
		wantFlat string
	}{
		{
			name:     "empty",
			records:  nil,
			wantFlat: "",
		},
		{
			name:     "single record",
			records:  []record{{{"id", "1"}, {"title", "One"}}},
			wantFlat: "1|One",
		},
		{
			name: "delimiters inside values",
			records: []record{
				{{"id", "1"}, {"title", "a|b;c"}},
				{{"id", "2"}, {"title", "line\nbreak\r"}},
			},
			wantFlat: "1|a b c;;2|line break ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat, items := encodeList(tt.records)

			if flat != tt.wantFlat {
				t.Errorf("flat = %q, want %q", flat, tt.wantFlat)
			}
			if len(items) != len(tt.records) {
				t.Fatalf("len(items) = %d, want %d", len(items), len(tt.records))
			}
			for i, r := range tt.records {
				for _, f := range r {
					if items[i][f.name] != f.value {
						t.Errorf("items[%d][%q] = %q, want raw %q", i, f.name, items[i][f.name], f.value)
					}
				}
			}
		})
	}
}

func TestPodcastRecord_TruncatesDescriptionByRune(t *testing.T) {
	desc := strings.Repeat("é", 120)

	r := podcastRecord(podcast.Podcast{ID: 3, Title: "T", Description: desc})

	got := r[2].value
	if n := len([]rune(got)); n != maxDescriptionLen {
		t.Errorf("description has %d runes, want %d", n, maxDescriptionLen)
	}
	if r[0].value != "3" || r[1].value != "T" {
		t.Errorf("record = %v", r)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q, want unchanged", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("truncate() = %q, want %q", got, "abc")
	}
}
