package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TranscriptExtractor fetches the transcript of a video URL from an external
// transcript service and slices it into segments. The service contract is a
// GET with the video URL as a query parameter, answering JSON:
//
//	{"segments": [{"text": "...", "start": 12.4}, ...]}
type TranscriptExtractor struct {
	Endpoint        string
	Client          *http.Client
	MaxSegmentChars int
}

type transcriptResponse struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
	} `json:"segments"`
	Error string `json:"error,omitempty"`
}

func (e *TranscriptExtractor) Extract(ctx context.Context, videoURL string) ([]Segment, error) {
	if _, err := url.ParseRequestURI(videoURL); err != nil {
		return nil, fmt.Errorf("%w: invalid video url: %w", ErrUnsupported, err)
	}

	endpoint := e.Endpoint + "?url=" + url.QueryEscape(videoURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript service returned %s", resp.Status)
	}

	var result transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("transcript service: %s", result.Error)
	}

	maxChars := e.MaxSegmentChars
	if maxChars < 1 {
		maxChars = defaultMaxSegmentChars
	}

	var (
		segments []Segment
		current  strings.Builder
		start    float64
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
				"source": videoURL,
				"start":  strconv.FormatFloat(start, 'f', 1, 64),
			},
		})
	}

	for _, slice := range result.Segments {
		text := strings.TrimSpace(slice.Text)
		if text == "" {
			continue
		}

		if current.Len() == 0 {
			start = slice.Start
		} else if current.Len()+len(text) > maxChars {
			flush()
			start = slice.Start
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(text)
	}
	flush()

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, videoURL)
	}

	return segments, nil
}
