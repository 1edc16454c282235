// Package catalog implements the DL/T645 data-identifier catalog: it
// loads DI definitions from JSON, synthesizes the combinatorial space
// of energy and demand DIs, and serves lookups and mutations under a
// lock.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elecbridge/dlt645"
)

// hexDI unmarshals a JSON hex string (e.g. "00800000") into a uint32,
// mirroring the Di field's on-the-wire encoding in the shipped
// *_types.json datasets.
type hexDI uint32

func (h *hexDI) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("catalog: parse DI %q: %w", s, err)
	}
	*h = hexDI(v)
	return nil
}

// typeEntry is one element of an energy_types.json, demand_types.json,
// or variable_types.json array.
type typeEntry struct {
	Di         hexDI
	Name       string
	Unit       string
	DataFormat string
}

// parseTypes decodes a *_types.json payload into its ordered entry
// list. A nil or empty payload parses to an empty list rather than an
// error, so a caller may omit a dataset entirely.
func parseTypes(data []byte) ([]typeEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []typeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("catalog: decode type list: %w", err)
	}
	return entries, nil
}

func (e typeEntry) toItem(name string) dlt645.DataItem {
	return dlt645.DataItem{
		Name:       name,
		DataFormat: e.DataFormat,
		Value:      dlt645.EmptyValue(),
		Unit:       e.Unit,
	}
}
