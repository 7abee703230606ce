package visualize

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names one plot type.
type Kind string

const (
	KindMap                Kind = "map"
	KindDepthProfile       Kind = "depth_profile"
	KindTimeMagnitude      Kind = "time_magnitude"
	KindCumulativeCount    Kind = "cumulative_count"
	KindMagnitudeFrequency Kind = "magnitude_frequency"
)

// AllKinds lists every plot type in rendering order.
var AllKinds = []Kind{
	KindMap,
	KindDepthProfile,
	KindTimeMagnitude,
	KindCumulativeCount,
	KindMagnitudeFrequency,
}

// ErrUnknownKind is returned for a plot type name that is not in AllKinds.
var ErrUnknownKind = errors.New("unknown plot kind")

// ParseKinds converts names to kinds. An empty list selects every kind.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return AllKinds, nil
	}
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(strings.TrimSpace(n))
		if !k.valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (k Kind) valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}
