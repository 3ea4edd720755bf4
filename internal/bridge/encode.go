package bridge

import (
	"strconv"
	"strings"

	"github.com/d2verb/podbridge/internal/podcast"
)

// Flat list encoding for the data map: fields are joined by fieldSep and
// records by recordSep.
const (
	fieldSep          = "|"
	recordSep         = ";;"
	maxDescriptionLen = 100
)

// record is one list entry as ordered (name, value) pairs.
type record []field

type field struct {
	name  string
	value string
}

// encodeList returns the flat encoding and the nested items of records.
func encodeList(records []record) (string, []map[string]string) {
	flat := make([]string, len(records))
	items := make([]map[string]string, len(records))
	for i, r := range records {
		values := make([]string, len(r))
		item := make(map[string]string, len(r))
		for j, f := range r {
			values[j] = flatField(f.value)
			item[f.name] = f.value
		}
		flat[i] = strings.Join(values, fieldSep)
		items[i] = item
	}
	return strings.Join(flat, recordSep), items
}

var flatReplacer = strings.NewReplacer("|", " ", ";", " ", "\n", " ", "\r", " ")

// flatField replaces delimiter characters so a value cannot split a record.
func flatField(s string) string {
	return flatReplacer.Replace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func podcastRecord(p podcast.Podcast) record {
	return record{
		{"id", itoa(p.ID)},
		{"title", p.Title},
		{"description", truncate(p.Description, maxDescriptionLen)},
	}
}

func episodeRecord(e podcast.Episode) record {
	return record{
		{"id", itoa(e.ID)},
		{"title", e.Title},
		{"podcastId", itoa(e.PodcastID)},
		{"durationSeconds", itoa(e.DurationSeconds)},
	}
}

func chapterRecord(c podcast.Chapter) record {
	return record{
		{"startTime", itoa(c.StartSeconds)},
		{"title", c.Title},
	}
}
