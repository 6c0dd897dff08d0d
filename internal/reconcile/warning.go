package reconcile

import "fmt"

// WarningKind classifies a reconciliation warning.
type WarningKind string

const (
	// WarnMissingKey marks a primary record dropped for lack of a key.
	WarnMissingKey WarningKind = "missing_key"
	// WarnNoMatch marks an auxiliary dataset without a record for a region.
	WarnNoMatch WarningKind = "no_match"
	// WarnDisagreement marks sources reporting different values for one field.
	WarnDisagreement WarningKind = "disagreement"
)

// Warning is a non-fatal reconciliation finding.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Key     string      `json:"key,omitempty"`
	Name    string      `json:"name,omitempty"`
	Dataset string      `json:"dataset,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnMissingKey:
		return fmt.Sprintf("skipping county %q: missing AGS", w.Name)
	case WarnNoMatch:
		return fmt.Sprintf("no %s record for %s (%s)", w.Dataset, w.Key, w.Name)
	default:
		return fmt.Sprintf("%s disagrees for %s (%s): %s", w.Dataset, w.Key, w.Name, w.Detail)
	}
}
