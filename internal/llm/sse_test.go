package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSSEReader(t *testing.T) {
	body := ": keep-alive\n" +
		"event: ping\ndata: {}\n\n" +
		"data: line one\ndata: line two\n\n" +
		"\n\n" +
		"event: last\ndata: no trailing newline"
	r := newSSEReader(strings.NewReader(body))

	want := []struct{ event, data string }{
		{"ping", "{}"},
		{"", "line one\nline two"},
		{"last", "no trailing newline"},
	}
	for i, w := range want {
		ev, data, err := r.next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev != w.event || data != w.data {
			t.Errorf("event %d = (%q, %q), want (%q, %q)", i, ev, data, w.event, w.data)
		}
	}
	if _, _, err := r.next(); !errors.Is(err, io.EOF) {
		t.Errorf("final err = %v, want io.EOF", err)
	}
}
