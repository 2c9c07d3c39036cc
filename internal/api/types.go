package api

import (
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/sitemeta"
	"github.com/joestump/hookline/internal/templates"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error" example:"Invalid input: \"acme\" is not an absolute http(s) URL."`
	Code  string `json:"code" example:"INVALID_INPUT"`
}

// --- Hook types ---

// RunHooksRequest is the request body for POST /api/v1/hooks.
type RunHooksRequest struct {
	URLs []string `json:"urls"`
}

// URLRequest is the request body for the single-URL endpoints.
type URLRequest struct {
	URL string `json:"url"`
}

// OutcomeResponse is one generation result.
type OutcomeResponse struct {
	URL        string    `json:"url"`
	Style      string    `json:"style" enums:"hook,fit"`
	State      string    `json:"state" enums:"pending,generating,succeeded,failed"`
	Text       string    `json:"text,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	DurationMS int64     `json:"duration_ms"`
}

// RunHooksResponse lists one outcome per submitted URL, in order.
type RunHooksResponse struct {
	Outcomes []OutcomeResponse `json:"outcomes"`
}

// EntryResponse is everything known about one URL in the session.
type EntryResponse struct {
	URL     string            `json:"url"`
	Hook    *OutcomeResponse  `json:"hook,omitempty"`
	Fit     *OutcomeResponse  `json:"fit,omitempty"`
	Preview *sitemeta.Preview `json:"preview,omitempty"`
}

// EntryListResponse is the response for GET /api/v1/hooks.
type EntryListResponse struct {
	Entries    []EntryResponse `json:"entries"`
	Configured bool            `json:"configured"`
}

// --- Template types ---

// TemplatesResponse is the body of GET and PUT /api/v1/templates.
type TemplatesResponse struct {
	Hook string `json:"hook"`
	Fit  string `json:"fit"`
}

// UpdateTemplatesRequest is the request body for PUT /api/v1/templates.
type UpdateTemplatesRequest struct {
	Hook string `json:"hook"`
	Fit  string `json:"fit"`
}

func toOutcomeResponse(o hooks.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		URL:        o.URL,
		Style:      string(o.Style),
		State:      string(o.State),
		Text:       o.Text,
		UpdatedAt:  o.UpdatedAt,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		resp.Error = apperr.UserMessage(o.Err)
		resp.ErrorKind = string(apperr.KindOf(o.Err))
	}
	return resp
}

func toEntryResponse(e hooks.Entry) EntryResponse {
	resp := EntryResponse{URL: e.URL, Preview: e.Preview}
	if e.Hook.State != hooks.StateNone {
		hook := toOutcomeResponse(e.Hook)
		resp.Hook = &hook
	}
	if e.Fit != nil {
		fit := toOutcomeResponse(*e.Fit)
		resp.Fit = &fit
	}
	return resp
}

func toTemplatesResponse(s templates.Set) TemplatesResponse {
	return TemplatesResponse{Hook: s.Hook, Fit: s.Fit}
}
