package idbkit

import (
	"encoding/json"

	"github.com/idbkit/idbkit/internal/dictionary"
)

// SDIReport is the result of sdi(): every dictionary record found.
type SDIReport struct {
	File    string
	Records []dictionary.Record
}

// SDI locates and extracts every SDI record embedded in the tablespace.
// WithPretty only affects the JSON rendering a caller does of the
// returned records; the records themselves are always fully decoded.
func SDI(path string, opts ...Option) (SDIReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return SDIReport{}, err
	}
	defer h.Close()

	pages, err := dictionary.FindSDIPages(h)
	if err != nil {
		return SDIReport{}, err
	}
	records, err := dictionary.ExtractAll(h, pages)
	if err != nil {
		return SDIReport{}, err
	}
	return SDIReport{File: path, Records: records}, nil
}

// MarshalPretty is a convenience for drivers that want sdi()'s records
// rendered as indented JSON.
func (r SDIReport) MarshalPretty() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
