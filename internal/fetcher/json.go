package fetcher

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
)

// BuildURL appends params to rawURL, keeping any query already present.
// Parameter values are passed through unmodified.
func BuildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "parse url %s", rawURL)
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetJSON downloads rawURL with params and decodes the JSON body into v.
// Decode failures are reported as FetchError like transport failures.
func GetJSON(ctx context.Context, f Fetcher, rawURL string, params url.Values, v any) error {
	target, err := BuildURL(rawURL, params)
	if err != nil {
		return err
	}

	body, err := f.Download(ctx, target)
	if err != nil {
		return err
	}
	defer body.Close() //nolint:errcheck

	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &FetchError{URL: target, Err: eris.Wrap(err, "json: decode response")}
	}
	return nil
}

// Remarshal converts a generic decoded JSON value into T.
func Remarshal[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, eris.Wrap(err, "json: marshal")
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, eris.Wrap(err, "json: unmarshal")
	}
	return out, nil
}
