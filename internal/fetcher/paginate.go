package fetcher

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the page size requested when PageRequest.PageSize is unset.
	DefaultPageSize = 2000
	// DefaultMaxRecords caps pagination against endpoints that never return a short page.
	DefaultMaxRecords = 100000
)

// PageRequest describes a cursor-style paginated endpoint.
type PageRequest struct {
	URL          string
	Params       url.Values // static parameters, passed through unmodified
	PageSize     int
	MaxRecords   int
	RecordsField string // envelope field holding the page's records, e.g. "features"
	OffsetParam  string // default "resultOffset"
	SizeParam    string // default "resultRecordCount"
}

// PageResult is the merged envelope of every page fetched.
type PageResult struct {
	Envelope map[string]any
	Requests int // requests issued, including a trailing empty page
	Pages    int // requests that returned at least one record
	field    string
}

// Records returns the concatenated records of all pages.
func (r *PageResult) Records() []any {
	if r == nil || r.Envelope == nil {
		return nil
	}
	recs, _ := r.Envelope[r.field].([]any)
	return recs
}

// FetchAll walks a paginated endpoint from offset 0, merging each page's
// envelope into one result. It stops after a page shorter than the page size,
// or once the offset passes the record cap. Any error aborts the walk and no
// partial result is returned.
func FetchAll(ctx context.Context, f Fetcher, req PageRequest) (*PageResult, error) {
	if req.RecordsField == "" {
		return nil, eris.New("fetcher: paginate: records field required")
	}
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.MaxRecords <= 0 {
		req.MaxRecords = DefaultMaxRecords
	}
	if req.OffsetParam == "" {
		req.OffsetParam = "resultOffset"
	}
	if req.SizeParam == "" {
		req.SizeParam = "resultRecordCount"
	}

	log := zap.L().With(zap.String("component", "fetcher.paginate"), zap.String("url", req.URL))
	res := &PageResult{Envelope: map[string]any{}, field: req.RecordsField}

	offset := 0
	for offset <= req.MaxRecords {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetcher: paginate")
		}

		params := url.Values{}
		for k, vs := range req.Params {
			params[k] = append([]string(nil), vs...)
		}
		params.Set(req.OffsetParam, strconv.Itoa(offset))
		params.Set(req.SizeParam, strconv.Itoa(req.PageSize))

		log.Debug("fetching page", zap.Int("offset", offset), zap.Int("page_size", req.PageSize))

		var page map[string]any
		if err := GetJSON(ctx, f, req.URL, params, &page); err != nil {
			return nil, eris.Wrapf(err, "fetcher: paginate at offset %d", offset)
		}
		res.Requests++

		if apiErr, ok := page["error"].(map[string]any); ok {
			return nil, &FetchError{URL: req.URL, Err: eris.Errorf("endpoint error: %v", apiErr["message"])}
		}

		raw, present := page[req.RecordsField]
		records, ok := raw.([]any)
		if present && raw != nil && !ok {
			return nil, &FetchError{URL: req.URL, Err: eris.Errorf("field %q is not an array", req.RecordsField)}
		}
		if len(records) > 0 {
			res.Pages++
		}

		res.Envelope = MergeEnvelope(res.Envelope, page)
		offset += len(records)

		if len(records) < req.PageSize {
			break
		}
	}

	if _, ok := res.Envelope[req.RecordsField].([]any); !ok {
		res.Envelope[req.RecordsField] = []any{}
	}

	log.Debug("pagination complete",
		zap.Int("records", len(res.Records())),
		zap.Int("requests", res.Requests),
	)
	return res, nil
}
