// Package domain models aftershock observations of the 26 December 1979
// Carlisle (UK) earthquake and the schema contract contributors submit against.
//
// # Data Source
//
// Contributors fill in the CSV template (data/aftershock_template.csv), either
// by hand or by transcribing historical bulletins. Each row is one event. The
// header row must match the schema column set; an empty cell denotes an absent
// optional value.
//
// # Schema
//
// The canonical contract is the JSON Schema document embedded from
// schema/aftershock.schema.json. Besides standard keywords (type, required,
// minimum, maximum, enum, format) it uses a few project extensions:
//
//	x-column-order  column order of the CSV template
//	x-pairs         fields that must be present together (magnitude, magnitude_type)
//	x-after         lower chronological bound (the main-shock origin time)
//	x-unique        values must be unique across a catalog
//
// # Conventions
//
// Times:
//
//	RFC 3339 with an explicit zone, e.g. "1979-12-29T02:15:00Z", normalised to UTC.
//	Zone-less "1979-12-29T02:15:00" and "1979-12-29 02:15:00" are read as UTC.
//
// Magnitude types:
//
//	ML  local (Richter) magnitude, used by the BGS bulletins of the period
//	Mw  moment magnitude
//	Md  duration (coda) magnitude
//
// Depth:
//
//	Kilometres below sea level. Historical readings often lack a depth; the
//	cell is then left empty and the record carries a nil DepthKM.
//
// # Validation
//
// [Validate] checks every row against the schema and collects every violation
// rather than stopping at the first one, so a contributor can fix a submission
// in one pass. Acceptance is all-or-nothing: only a violation-free result
// yields a validated [Catalog].
package domain
