package core

import (
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "plain text unchanged",
			text: "hello world",
			want: "hello world",
		},
		{
			name: "newlines collapse to spaces",
			text: "hello\nworld\r\nagain",
			want: "hello world again",
		},
		{
			name: "whitespace runs collapse",
			text: "hello   world\t\tagain",
			want: "hello world again",
		},
		{
			name: "leading and trailing trimmed",
			text: "  hello world  ",
			want: "hello world",
		},
		{
			name: "whitespace only",
			text: "   \n  ",
			want: "",
		},
		{
			name: "empty",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.text); got != tt.want {
				t.Errorf("NormalizeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "backslashes stripped",
			text: `C:\docs\notes`,
			want: "C:docsnotes",
		},
		{
			name: "hashes become spaces",
			text: "#heading text",
			want: "heading text",
		},
		{
			name: "newlines and runs normalized",
			text: "what is\n\nthe   answer?",
			want: "what is the answer?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanQuery(tt.text); got != tt.want {
				t.Errorf("CleanQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewChunk(t *testing.T) {
	t.Run("normalizes and hashes", func(t *testing.T) {
		chunk, ok := NewChunk(&RawChunk{
			PageContent: "hello\n  world",
			Metadata:    map[string]string{"source": "test"},
		})
		if !ok {
			t.Fatal("NewChunk() dropped a non-empty chunk")
		}
		if chunk.PageContent != "hello world" {
			t.Errorf("PageContent = %q, want %q", chunk.PageContent, "hello world")
		}
		if chunk.ContentHash != HashContent("hello world") {
			t.Errorf("ContentHash does not match normalized text hash")
		}
		if chunk.Metadata["source"] != "test" {
			t.Errorf("Metadata not carried over")
		}
	})

	t.Run("drops whitespace-only chunk", func(t *testing.T) {
		_, ok := NewChunk(&RawChunk{PageContent: "   \n  "})
		if ok {
			t.Error("NewChunk() kept a whitespace-only chunk")
		}
	})

	t.Run("identical normalized text gives identical hash", func(t *testing.T) {
		a, _ := NewChunk(&RawChunk{PageContent: "same  text"})
		b, _ := NewChunk(&RawChunk{PageContent: "same\ntext"})
		if a.ContentHash != b.ContentHash {
			t.Errorf("hashes differ for identical normalized text")
		}
	})
}
