package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *FileExtractor) extractPDF(ctx context.Context, path string) ([]Segment, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var segments []Segment

	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageNum, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			Content: text,
			Metadata: map[string]string{
				"source": path,
				"page":   strconv.Itoa(pageNum),
			},
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, path)
	}

	return segments, nil
}
