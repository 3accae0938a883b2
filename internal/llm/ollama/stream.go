package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/marcus/bmo/internal/llm"
)

// StreamReader decodes the server's newline-delimited JSON stream.
type StreamReader struct {
	reader *bufio.Reader
}

// NewStreamReader wraps r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Process calls fn for every chunk until the done chunk, EOF, a callback
// error, or cancellation.
func (s *StreamReader) Process(ctx context.Context, fn func(ChatResponse) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var chunk ChatResponse
			if jsonErr := json.Unmarshal(trimmed, &chunk); jsonErr != nil {
				return fmt.Errorf("%w: %v", llm.ErrEmptyResponse, jsonErr)
			}
			if cbErr := fn(chunk); cbErr != nil {
				return cbErr
			}
			if chunk.Done {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
