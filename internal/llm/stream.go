package llm

import (
	"fmt"
	"strings"

	"github.com/joestump/hookline/internal/apperr"
)

// Stream yields text fragments in arrival order.
//
//	for s.Next() {
//		text += s.Fragment()
//	}
//	if s.Err() != nil { ... }
//
// Err must report an incomplete or blocked stream, not only transport errors.
type Stream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// Collect concatenates every fragment of s in the order received and closes s.
// A stream that ends with an error yields no text, only a KindGeneration error
// noting how many fragments had arrived; KindAuth errors pass through as is.
// A stream with no text at all is also a KindGeneration error.
func Collect(s Stream) (string, error) {
	defer func() { _ = s.Close() }()

	var (
		b     strings.Builder
		count int
	)
	for s.Next() {
		f := s.Fragment()
		if f == "" {
			continue
		}
		b.WriteString(f)
		count++
	}

	if err := s.Err(); err != nil {
		if k := apperr.KindOf(err); k != "" && k != apperr.KindGeneration {
			return "", err
		}
		return "", apperr.Generation("collect stream",
			fmt.Sprintf("stream failed after %d fragment(s); partial output discarded", count), err)
	}
	if count == 0 || strings.TrimSpace(b.String()) == "" {
		return "", apperr.Generation("collect stream", "the AI service returned an empty response", nil)
	}
	return b.String(), nil
}

// SliceStream is a Stream over fixed fragments, ending with err. Used by the
// mock generator and tests.
type SliceStream struct {
	Fragments []string
	Failure   error

	pos    int
	cur    string
	closed bool
}

func (s *SliceStream) Next() bool {
	if s.pos >= len(s.Fragments) {
		return false
	}
	s.cur = s.Fragments[s.pos]
	s.pos++
	return true
}

func (s *SliceStream) Fragment() string { return s.cur }

func (s *SliceStream) Err() error {
	if s.pos >= len(s.Fragments) {
		return s.Failure
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool { return s.closed }
