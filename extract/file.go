package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultMaxSegmentChars = 2000

// FileExtractor turns a local artifact into ordered text segments, picking
// the parser by file extension. PDFs yield one segment per page; plain text
// and markdown are split on blank lines and merged up to MaxSegmentChars.
type FileExtractor struct {
	MaxSegmentChars int
}

func (e *FileExtractor) Extract(ctx context.Context, path string) ([]Segment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(ctx, path)
	case ".txt", ".md", ".markdown":
		return e.extractText(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrUnsupported, filepath.Ext(path))
	}
}

func (e *FileExtractor) extractText(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, path)
	}

	maxChars := e.MaxSegmentChars
	if maxChars < 1 {
		maxChars = defaultMaxSegmentChars
	}

	var (
		segments []Segment
		current  strings.Builder
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()

		if text == "" {
			return
		}

		segments = append(segments, Segment{
			Content: text,
			Metadata: map[string]string{
				"source": path,
				"offset": strconv.Itoa(len(segments)),
			},
		})
	}

	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph) > maxChars {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, path)
	}

	return segments, nil
}
