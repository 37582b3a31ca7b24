package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// throttleMarker is the substring the remote embeds in its error message when
// the request rate is exceeded. It is the only signal distinguishing a
// throttled response from a fatal API error; both arrive with an ERROR status.
const throttleMarker = "exceeded the maximum requests"

// Class categorizes a catalog response payload.
type Class string

const (
	// ClassOK is a success payload carrying results.
	ClassOK Class = "ok"

	// ClassThrottled is a rate-limit rejection: retry the same target after
	// backing off, never advance.
	ClassThrottled Class = "throttled"

	// ClassError is any other reported API error: abort the run.
	ClassError Class = "error"

	// ClassMalformed is a payload with neither results nor an error: abort.
	ClassMalformed Class = "malformed"
)

// Page is one decoded catalog response.
type Page struct {
	// Status is the remote's ok/error marker.
	Status string

	// Err is the error message, present only on error responses.
	Err string

	// Results holds the page's records. HasResults distinguishes an empty
	// final page from a payload that carried no results field at all.
	Results    []records.Record
	HasResults bool

	// NextURL is the opaque continuation for the next page, "" on the last.
	NextURL string
}

// pagePayload is the wire shape of a catalog response.
type pagePayload struct {
	Status  string            `json:"status"`
	Error   string            `json:"error"`
	Results *[]records.Record `json:"results"`
	NextURL string            `json:"next_url"`
}

// UnmarshalJSON decodes the wire payload, tracking results-field presence.
func (p *Page) UnmarshalJSON(data []byte) error {
	var payload pagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode page: %w", err)
	}

	p.Status = payload.Status
	p.Err = payload.Error
	p.NextURL = payload.NextURL
	if payload.Results != nil {
		p.HasResults = true
		p.Results = *payload.Results
	}
	return nil
}

// Classify maps the payload onto the response taxonomy.
func (p *Page) Classify() Class {
	if strings.EqualFold(p.Status, "ERROR") || p.Err != "" {
		if strings.Contains(p.Err, throttleMarker) {
			return ClassThrottled
		}
		return ClassError
	}

	if !p.HasResults {
		return ClassMalformed
	}

	return ClassOK
}
