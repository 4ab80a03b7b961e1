// Package signal normalizes vendor observability events into opx's own
// Signal shape (spec.md §4.3). The normalizer is a total, default-free
// function: vendor envelopes that don't fit the canonical alarm-name
// pattern, or aren't in a firing state, are dropped rather than coerced.
package signal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/opx/controlplane/internal/identity"
	"github.com/opx/controlplane/pkg/domain"
)

// RawEvent is the vendor envelope handed to the normalizer by the
// out-of-scope ingestion layer. AlarmName follows the canonical pattern
// "{SEVERITY}-{service}-{signalType}", e.g. "SEV1-checkout-high-latency".
type RawEvent struct {
	Source     domain.SignalSource
	AlarmName  string
	State      string
	ObservedAt time.Time
	Metadata   map[string]string
	IngestedAt time.Time
}

// alarmNamePattern captures severity, service, and the remaining signal
// type from the canonical alarm name.
var alarmNamePattern = regexp.MustCompile(`^(SEV[1-4])-([a-z0-9]+(?:-[a-z0-9]+)*?)-(.+)$`)

// severityToNormalized fixes the vendor Severity -> opx NormalizedSeverity
// mapping; it never changes per event, so it's a package-level table rather
// than a parameter.
var severityToNormalized = map[domain.Severity]domain.NormalizedSeverity{
	domain.SeveritySEV1: domain.NormalizedCritical,
	domain.SeveritySEV2: domain.NormalizedHigh,
	domain.SeveritySEV3: domain.NormalizedMedium,
	domain.SeveritySEV4: domain.NormalizedLow,
}

// identityWindowLayout is the fixed minute grid observedAt is rounded down
// to for identity purposes (spec.md §3).
const identityWindowLayout = "2006-01-02T15:04Z"

// Normalize is total: ok is false whenever the vendor event can't be
// parsed into a valid Signal, and the caller is expected to drop the event
// and count a validation metric rather than treat it as an error.
func Normalize(ev RawEvent) (sig domain.Signal, ok bool) {
	if !strings.EqualFold(ev.State, "firing") {
		return domain.Signal{}, false
	}

	m := alarmNamePattern.FindStringSubmatch(ev.AlarmName)
	if m == nil {
		return domain.Signal{}, false
	}
	severity := domain.Severity(m[1])
	service := m[2]
	signalType := m[3]

	normalized, known := severityToNormalized[severity]
	if !known {
		return domain.Signal{}, false
	}

	identityWindow := ev.ObservedAt.UTC().Truncate(time.Minute).Format(identityWindowLayout)
	canonicalMetadata := canonicalizeMetadata(ev.Metadata)

	// The digest takes the window with its ':' removed, since ':' is the
	// digest separator; IdentityWindow itself keeps the readable form.
	signalID := identity.DigestColon(
		string(ev.Source), signalType, service, string(severity), strings.ReplaceAll(identityWindow, ":", ""), canonicalMetadata,
	)

	return domain.Signal{
		SignalID:           signalID,
		Source:             ev.Source,
		SignalType:         signalType,
		Service:            service,
		Severity:           severity,
		NormalizedSeverity: normalized,
		ObservedAt:         ev.ObservedAt,
		IdentityWindow:     identityWindow,
		Metadata:           ev.Metadata,
		IngestedAt:         ev.IngestedAt,
	}, true
}

// canonicalizeMetadata produces a deterministic string form of an opaque
// metadata map so equal maps always contribute the same identity input,
// independent of Go's randomized map iteration order.
func canonicalizeMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, metadata[k]))
	}
	return strings.Join(pairs, ",")
}
