package llm

import "context"

// MockGenerator answers without calling any service. Selected with
// llm.provider = mock for local UI work.
type MockGenerator struct{}

func (MockGenerator) Generate(_ context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	var frags []string
	switch req.Style {
	case StyleFit:
		frags = []string{"## Website redesign\n", "A placeholder recommendation for ", req.URL, ".\n"}
	default:
		frags = []string{"A placeholder hook for ", req.URL, ". ", "Set llm.provider to openai or anthropic for real output."}
	}
	return Collect(&SliceStream{Fragments: frags})
}
