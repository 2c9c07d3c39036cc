package llm

import (
	"bufio"
	"io"
	"strings"
)

// sseReader pulls server-sent events off a response body one at a time.
type sseReader struct {
	br *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{br: bufio.NewReader(r)}
}

// next returns the next event. It returns io.EOF once the body is exhausted
// with no pending event.
func (s *sseReader) next() (event, data string, err error) {
	var dataLines []string
	for {
		line, err := s.br.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF && len(dataLines) > 0 {
				return event, strings.Join(dataLines, "\n"), nil
			}
			return "", "", err
		}
		line = strings.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if line == "" {
			if len(dataLines) == 0 {
				event = ""
				continue
			}
			return event, strings.Join(dataLines, "\n"), nil
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}
