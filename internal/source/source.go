// Package source fetches raw county records from the RKI, Destatis and
// Risklayer services and bundles them for reconciliation.
package source

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Attribution strings reported in entity metadata.
const (
	RKICopyright       = "Robert Koch-Institut"
	DestatisCopyright  = "Statistisches Bundesamt (Destatis), Feb 2020"
	RiskLayerCopyright = "Risklayer GmbH (covid19-risklayer-data)"
)

// Code is an administrative region code as delivered by a source. Sources
// disagree on whether it is a JSON string or number; both decode to the
// same textual form, without any padding normalization.
type Code string

// UnmarshalJSON accepts a string, a number or null.
func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "source: decode code")
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return eris.Wrap(err, "source: decode code")
	}
	*c = Code(n.String())
	return nil
}

// String returns the code text.
func (c Code) String() string {
	return string(c)
}

// groupedCount matches integers written with thousands separators, either
// German ("12.345") or English ("12,345").
var groupedCount = regexp.MustCompile(`^-?\d{1,3}([.,]\d{3})+$`)

// parseCount parses a spreadsheet cell as a count. Empty cells are zero;
// thousands separators are removed. Values with a fractional part are
// rejected since every count column holds whole numbers.
func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if s == "" || s == "-" {
		return 0, nil
	}
	if groupedCount.MatchString(s) {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "source: parse count %q", s)
	}
	if f != math.Trunc(f) {
		return 0, eris.Errorf("source: count %q has a fractional part", s)
	}
	return int64(f), nil
}
