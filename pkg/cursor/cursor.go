// Package cursor tracks the position inside a paginated catalog listing.
//
// A cursor is either fresh (no prior progress: the target is built from the
// static query parameters), resuming (an opaque continuation returned by the
// previous page, replayed verbatim), or terminal (the last response carried no
// continuation). Tokens are never parsed or rewritten locally; the only legal
// source of a token is the immediately preceding successful response.
package cursor

import (
	"fmt"
	"net/url"
)

// Query holds the static parameters of a catalog listing request.
type Query struct {
	// BaseURL is the listing endpoint, e.g. "https://api.polygon.io/v3/reference/tickers".
	BaseURL string

	// Market filters the catalog, e.g. "stocks".
	Market string

	// ActiveOnly restricts results to currently active entries.
	ActiveOnly bool

	// Order is the sort direction, e.g. "asc".
	Order string

	// Limit is the page size.
	Limit int

	// Sort is the sort key, e.g. "ticker".
	Sort string
}

// Cursor is an immutable position in the listing. The zero value is not
// meaningful; use Fresh or Resume.
type Cursor struct {
	token    string
	resuming bool
	done     bool
}

// Fresh returns the initial cursor for a run with no prior progress.
func Fresh() Cursor {
	return Cursor{}
}

// Resume returns a cursor that replays a continuation token loaded from a
// checkpoint. An empty token is equivalent to Fresh.
func Resume(token string) Cursor {
	if token == "" {
		return Fresh()
	}
	return Cursor{token: token, resuming: true}
}

// IsFresh reports whether the cursor is the initial position.
func (c Cursor) IsFresh() bool {
	return !c.resuming && !c.done
}

// Done reports whether the listing is exhausted.
func (c Cursor) Done() bool {
	return c.done
}

// Token returns the continuation token, or "" for a fresh or terminal cursor.
func (c Cursor) Token() string {
	return c.token
}

// Resolve builds the request target for this position. A fresh cursor derives
// it from q; a resuming cursor returns the stored continuation unchanged. The
// API credential is deliberately not part of the target: the client appends it
// at request time, keeping tokens safe to persist.
func (c Cursor) Resolve(q Query) (string, error) {
	if c.done {
		return "", fmt.Errorf("cursor is terminal: no further pages")
	}

	if c.resuming {
		return c.token, nil
	}

	u, err := url.Parse(q.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	params := url.Values{}
	params.Set("market", q.Market)
	params.Set("active", fmt.Sprintf("%t", q.ActiveOnly))
	params.Set("order", q.Order)
	params.Set("limit", fmt.Sprintf("%d", q.Limit))
	params.Set("sort", q.Sort)
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// Advance returns the successor position given the continuation from the
// response just consumed. An empty continuation means the listing is done.
func (c Cursor) Advance(next string) Cursor {
	if next == "" {
		return Cursor{done: true}
	}
	return Cursor{token: next, resuming: true}
}
