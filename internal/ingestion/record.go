package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// DefaultCodeVersion is the echoprint code format of the public data dumps.
const DefaultCodeVersion = "4.12"

// Record is the flat form of one dump entry as the ingest endpoint expects it.
type Record struct {
	Code    string
	// Length is the duration exactly as written in the dump; "180.50" and
	// "1e2" are posted verbatim, not normalised.
	Length  json.Number
	Version string
	Artist  string
	Track   string
}

// dumpEntry mirrors one element of an echoprint data dump. Pointers
// distinguish a missing (or null) key from an empty value.
type dumpEntry struct {
	Code     *string       `json:"code"`
	Metadata *dumpMetadata `json:"metadata"`
}

type dumpMetadata struct {
	Duration *json.Number `json:"duration"`
	Artist   *string      `json:"artist"`
	Title    *string      `json:"title"`
}

// ExtractRecord decodes a single dump element and flattens it into a Record
// stamped with version. The first absent key is reported as ErrMissingField.
func ExtractRecord(raw json.RawMessage, version string) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var entry dumpEntry
	if err := dec.Decode(&entry); err != nil {
		return Record{}, fmt.Errorf("decode entry: %w", err)
	}

	switch {
	case entry.Code == nil:
		return Record{}, missing("code")
	case entry.Metadata == nil:
		return Record{}, missing("metadata")
	case entry.Metadata.Duration == nil:
		return Record{}, missing("metadata.duration")
	case entry.Metadata.Artist == nil:
		return Record{}, missing("metadata.artist")
	case entry.Metadata.Title == nil:
		return Record{}, missing("metadata.title")
	}

	return Record{
		Code:    *entry.Code,
		Length:  *entry.Metadata.Duration,
		Version: version,
		Artist:  *entry.Metadata.Artist,
		Track:   *entry.Metadata.Title,
	}, nil
}

// Values returns the form fields posted for r.
func (r Record) Values() url.Values {
	return url.Values{
		"code":    {r.Code},
		"version": {r.Version},
		"length":  {r.Length.String()},
		"artist":  {r.Artist},
		"track":   {r.Track},
	}
}

// Encode renders r as an application/x-www-form-urlencoded body.
func (r Record) Encode() string {
	return r.Values().Encode()
}
