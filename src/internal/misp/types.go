// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Threat level identifiers as defined by MISP.
const (
	ThreatLevelHigh      = 1
	ThreatLevelMedium    = 2
	ThreatLevelLow       = 3
	ThreatLevelUndefined = 4
)

// Analysis stage identifiers as defined by MISP.
const (
	AnalysisInitial  = 0
	AnalysisOngoing  = 1
	AnalysisComplete = 2
)

// Distribution level identifiers as defined by MISP. DistributionInherit is
// only valid on attributes, where it defers to the owning event.
const (
	DistributionOrganisation = 0
	DistributionCommunity    = 1
	DistributionConnected    = 2
	DistributionAll          = 3
	DistributionSharingGroup = 4
	DistributionInherit      = 5
)

var threatLevelNames = map[int]string{
	ThreatLevelHigh:      "High",
	ThreatLevelMedium:    "Medium",
	ThreatLevelLow:       "Low",
	ThreatLevelUndefined: "Undefined",
}

var distributionNames = map[int]string{
	DistributionOrganisation: "Your Organization Only",
	DistributionCommunity:    "This Community Only",
	DistributionConnected:    "Connected Communities",
	DistributionAll:          "All Communities",
	DistributionSharingGroup: "Sharing Group",
	DistributionInherit:      "Inherit from Event",
}

var analysisNames = map[int]string{
	AnalysisInitial:  "Initial",
	AnalysisOngoing:  "Ongoing",
	AnalysisComplete: "Complete",
}

// ThreatLevelName converts a threat level identifier to its readable name.
// MISP serializes the identifier as a string, so the raw wire value can be
// passed directly.
func ThreatLevelName(id string) string { return enumName(threatLevelNames, id) }

// DistributionName converts a distribution identifier to its readable name.
func DistributionName(id string) string { return enumName(distributionNames, id) }

// AnalysisName converts an analysis stage identifier to its readable name.
func AnalysisName(id string) string { return enumName(analysisNames, id) }

func enumName(names map[int]string, id string) string {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err == nil {
		if name, ok := names[n]; ok {
			return name
		}
	}
	return fmt.Sprintf("Unknown (%s)", id)
}

// ValidateThreatLevel rejects threat levels outside 1..4 before any remote
// call is attempted.
func ValidateThreatLevel(op string, id int) error {
	if _, ok := threatLevelNames[id]; !ok {
		return validationErrorf(op, "threat_level_id must be 1 (High), 2 (Medium), 3 (Low) or 4 (Undefined), got %d", id)
	}
	return nil
}

// ValidateEventDistribution rejects event distribution levels outside 0..4.
func ValidateEventDistribution(op string, id int) error {
	if id < DistributionOrganisation || id > DistributionSharingGroup {
		return validationErrorf(op, "distribution must be between 0 and 4, got %d", id)
	}
	return nil
}

// ValidateAttributeDistribution rejects attribute distribution levels outside
// 0..5. Attributes additionally allow 5 to inherit the event's distribution.
func ValidateAttributeDistribution(op string, id int) error {
	if id < DistributionOrganisation || id > DistributionInherit {
		return validationErrorf(op, "distribution must be between 0 and 5, got %d", id)
	}
	return nil
}

// ValidateAnalysis rejects analysis stages outside 0..2.
func ValidateAnalysis(op string, id int) error {
	if _, ok := analysisNames[id]; !ok {
		return validationErrorf(op, "analysis must be 0 (Initial), 1 (Ongoing) or 2 (Complete), got %d", id)
	}
	return nil
}

// NormalizeValue canonicalizes an attribute value before submission: leading
// and trailing whitespace is trimmed and the text is NFC-normalized so the
// same indicator always matches server-side regardless of how the caller
// composed it.
func NormalizeValue(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// Flag is a boolean that tolerates MISP's mixed serialization: depending on
// endpoint and version the same field arrives as true/false, "0"/"1" or
// "true"/"false". It always marshals back to a plain JSON boolean.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch s := string(bytes.Trim(data, `"`)); s {
	case "1", "true", "True":
		*f = true
	case "0", "false", "False", "null", "":
		*f = false
	default:
		return fmt.Errorf("misp: cannot parse %q as boolean flag", s)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// Event is a MISP event as returned by the REST API. Numeric identifiers and
// enums arrive as JSON strings; the name helpers above decode them.
type Event struct {
	ID             string      `json:"id,omitempty"`
	UUID           string      `json:"uuid,omitempty"`
	Info           string      `json:"info"`
	Date           string      `json:"date,omitempty"`
	ThreatLevelID  string      `json:"threat_level_id,omitempty"`
	Distribution   string      `json:"distribution,omitempty"`
	Analysis       string      `json:"analysis,omitempty"`
	Published      Flag        `json:"published,omitempty"`
	Timestamp      string      `json:"timestamp,omitempty"`
	AttributeCount string      `json:"attribute_count,omitempty"`
	OrgID          string      `json:"org_id,omitempty"`
	OrgcID         string      `json:"orgc_id,omitempty"`
	Org            *Org        `json:"Org,omitempty"`
	Orgc           *Org        `json:"Orgc,omitempty"`
	Attributes     []Attribute `json:"Attribute,omitempty"`
	Tags           []Tag       `json:"Tag,omitempty"`
}

// NumAttributes returns the number of attributes on the event, preferring the
// embedded list over the attribute_count header field.
func (e *Event) NumAttributes() int {
	if len(e.Attributes) > 0 {
		return len(e.Attributes)
	}
	if n, err := strconv.Atoi(e.AttributeCount); err == nil {
		return n
	}
	return 0
}

// OrgName returns the owning organisation's name when the API expanded it.
func (e *Event) OrgName() string {
	if e.Org != nil && e.Org.Name != "" {
		return e.Org.Name
	}
	return e.OrgID
}

// Attribute is a single indicator attached to an event.
type Attribute struct {
	ID           string `json:"id,omitempty"`
	EventID      string `json:"event_id,omitempty"`
	UUID         string `json:"uuid,omitempty"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	Value        string `json:"value"`
	ToIDS        Flag   `json:"to_ids"`
	Comment      string `json:"comment,omitempty"`
	Distribution string `json:"distribution,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	Tags         []Tag  `json:"Tag,omitempty"`
}

// Org is a MISP organisation reference.
type Org struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	UUID string `json:"uuid,omitempty"`
}

// Tag is a MISP tag reference.
type Tag struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Colour string `json:"colour,omitempty"`
}

// Feed describes a configured MISP feed source.
type Feed struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Provider       string `json:"provider,omitempty"`
	URL            string `json:"url,omitempty"`
	SourceFormat   string `json:"source_format,omitempty"`
	InputSource    string `json:"input_source,omitempty"`
	Description    string `json:"description,omitempty"`
	Enabled        Flag   `json:"enabled"`
	CachingEnabled Flag   `json:"caching_enabled"`
}

// VersionInfo is the payload of GET /servers/getVersion.
type VersionInfo struct {
	Version          string `json:"version"`
	PermSync         Flag   `json:"perm_sync"`
	PermSighting     Flag   `json:"perm_sighting"`
	PermGalaxyEditor Flag   `json:"perm_galaxy_editor"`
}
