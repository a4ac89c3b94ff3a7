// Package filter translates list-page query strings to and from a
// structured filter and page request. It is the only place that knows the
// query parameter names; the HTML pages, the JSON API and the CLI all go
// through it.
package filter

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jmaddaus/issuetrack/internal/store"
)

// Query parameter names.
const (
	ParamTitle     = "title"
	ParamStatus    = "status"
	ParamPriority  = "priority"
	ParamID        = "id"
	ParamExcludeID = "excludeId"
	ParamRemoveID  = "removeId"
	ParamTop       = "$top"
	ParamSkip      = "$skip"
)

// Any is the select value meaning "do not filter on this field".
const Any = "any"

// ErrMalformedQuery is returned when the raw query string cannot be parsed
// at all. Individual unusable values are ignored instead.
var ErrMalformedQuery = errors.New("malformed query string")

// Request is a validated filter and page request. Empty fields mean
// "not set".
type Request struct {
	Title      string
	Status     string
	Priority   string
	IncludeIDs []int
	ExcludeIDs []int
	PageSize   *int // nil: use the configured default; 0: unbounded
	Offset     int
}

// Decoded is the outcome of Decode. When Redirect is true the caller should
// redirect to RedirectQuery instead of serving a page.
type Decoded struct {
	Request       Request
	Redirect      bool
	RedirectQuery string
}

// Decode parses a raw query string. A removeId parameter prunes the listed
// ids from the id filter and turns the result into a redirect to the
// equivalent query without removeId.
func Decode(rawQuery string) (Decoded, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}

	if removeIDs := parseIDs(values[ParamRemoveID]); len(removeIDs) > 0 {
		remaining := slices.DeleteFunc(parseIDs(values[ParamID]), func(id int) bool {
			return slices.Contains(removeIDs, id)
		})
		values.Del(ParamRemoveID)
		setIDs(values, ParamID, remaining)
		return Decoded{Redirect: true, RedirectQuery: values.Encode()}, nil
	}

	return Decoded{Request: FromValues(values)}, nil
}

// FromValues builds a Request from already-parsed values. removeId is ignored.
func FromValues(values url.Values) Request {
	req := Request{
		Title:      strings.TrimSpace(values.Get(ParamTitle)),
		Status:     enumValue(values.Get(ParamStatus)),
		Priority:   enumValue(values.Get(ParamPriority)),
		IncludeIDs: parseIDs(values[ParamID]),
		ExcludeIDs: parseIDs(values[ParamExcludeID]),
	}
	if top, ok := parseNonNegative(values.Get(ParamTop)); ok {
		req.PageSize = &top
	}
	if skip, ok := parseNonNegative(values.Get(ParamSkip)); ok {
		req.Offset = skip
	}
	return req
}

// Values encodes the request back into query parameters. Unset fields are
// omitted, so Values(FromValues(v)) is the canonical form of v.
func (r Request) Values() url.Values {
	values := url.Values{}
	if r.Title != "" {
		values.Set(ParamTitle, r.Title)
	}
	if r.Status != "" {
		values.Set(ParamStatus, r.Status)
	}
	if r.Priority != "" {
		values.Set(ParamPriority, r.Priority)
	}
	setIDs(values, ParamID, r.IncludeIDs)
	setIDs(values, ParamExcludeID, r.ExcludeIDs)
	if r.PageSize != nil {
		values.Set(ParamTop, strconv.Itoa(*r.PageSize))
	}
	if r.Offset > 0 {
		values.Set(ParamSkip, strconv.Itoa(r.Offset))
	}
	return values
}

// Encode returns the canonical query string for the request.
func (r Request) Encode() string {
	return r.Values().Encode()
}

// EffectivePageSize resolves PageSize against the configured default.
func (r Request) EffectivePageSize(def int) int {
	if r.PageSize == nil {
		return def
	}
	return *r.PageSize
}

// WithOffset returns a copy of the request starting at offset.
func (r Request) WithOffset(offset int) Request {
	r.Offset = max(offset, 0)
	return r
}

// WithPageSize returns a copy of the request with the given page size and
// the offset reset to the first page.
func (r Request) WithPageSize(size int) Request {
	r.PageSize = &size
	r.Offset = 0
	return r
}

// WithIDs returns a copy of the request filtered to exactly ids, keeping
// paging but dropping the other field filters.
func (r Request) WithIDs(ids []int) Request {
	return Request{IncludeIDs: slices.Clone(ids), PageSize: r.PageSize}
}

// Cleared returns a copy with the title, status, priority and id filters
// removed. Paging is kept.
func (r Request) Cleared() Request {
	return Request{ExcludeIDs: r.ExcludeIDs, PageSize: r.PageSize, Offset: r.Offset}
}

// StoreFilter converts the request into a store filter. limit is passed in
// because callers may fetch more rows than one page.
func (r Request) StoreFilter(limit int) store.IssueFilter {
	return store.IssueFilter{
		Title:      r.Title,
		Status:     r.Status,
		Priority:   r.Priority,
		IncludeIDs: r.IncludeIDs,
		ExcludeIDs: r.ExcludeIDs,
		Limit:      limit,
		Offset:     r.Offset,
	}
}

func enumValue(v string) string {
	v = strings.TrimSpace(v)
	if v == Any {
		return ""
	}
	return v
}

// parseIDs keeps positive integer values in order, dropping anything else
// and later duplicates.
func parseIDs(raw []string) []int {
	var ids []int
	for _, s := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || id <= 0 || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func setIDs(values url.Values, key string, ids []int) {
	values.Del(key)
	for _, id := range ids {
		values.Add(key, strconv.Itoa(id))
	}
}

// MaxPaging caps $top and $skip so offset arithmetic on a page cannot
// overflow. Larger values, including ones past the range of int, clamp to it.
const MaxPaging = math.MaxInt32

func parseNonNegative(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return MaxPaging, true
	}
	if err != nil || n < 0 {
		return 0, false
	}
	return min(n, MaxPaging), true
}
