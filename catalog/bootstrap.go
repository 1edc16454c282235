package catalog

import (
	"embed"
	"fmt"

	"github.com/elecbridge/dlt645"
	"go.uber.org/zap"
)

//go:embed data/energy_types.json data/demand_types.json data/variable_types.json
var defaultData embed.FS

const (
	energySubClasses = 11 // DI2 offsets 0..10 within the energy class
	demandSubClasses = 10 // DI2 offsets 1..10 within the demand class
	items            = 64 // DI1 offsets 0..63 within a sub-class
	settlements      = 13 // DI0 offsets 0..12
)

// DefaultCatalog builds a Catalog from the dataset embedded in the
// binary. The shipped dataset deliberately covers only a slice of the
// full combinatorial space (one energy sub-class, one demand
// sub-class, and a handful of instantaneous variables): the rest of
// the grid is skipped at synthesis time exactly as it would be for
// any genuinely incomplete deployment dataset, exercising the same
// degrade path Bootstrap takes for partial JSON from the field.
func DefaultCatalog(logger *zap.Logger) (*Catalog, error) {
	energy, err := defaultData.ReadFile("data/energy_types.json")
	if err != nil {
		return nil, err
	}
	demand, err := defaultData.ReadFile("data/demand_types.json")
	if err != nil {
		return nil, err
	}
	variable, err := defaultData.ReadFile("data/variable_types.json")
	if err != nil {
		return nil, err
	}
	return Bootstrap(energy, demand, variable, logger)
}

// Bootstrap parses the three *_types.json datasets and synthesizes
// the full catalog: direct insertion of every parsed entry under its
// own Di, followed by the combinatorial energy and demand grids (each
// crossed with every settlement period) and their hard-coded extras.
// All of it happens before Bootstrap returns; there is no further
// lazy synthesis. logger may be nil.
func Bootstrap(energyJSON, demandJSON, variableJSON []byte, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	energyList, err := parseTypes(energyJSON)
	if err != nil {
		return nil, fmt.Errorf("catalog: energy_types.json: %w", err)
	}
	demandList, err := parseTypes(demandJSON)
	if err != nil {
		return nil, fmt.Errorf("catalog: demand_types.json: %w", err)
	}
	variableList, err := parseTypes(variableJSON)
	if err != nil {
		return nil, fmt.Errorf("catalog: variable_types.json: %w", err)
	}

	c := NewEmpty(logger)

	for _, list := range [][]typeEntry{energyList, demandList, variableList} {
		for _, e := range list {
			item := e.toItem(e.Name)
			item.DI = uint32(e.Di)
			c.items[item.DI] = item
		}
	}

	synthesizeGrid(c, energyList, dlt645.DI3Energy, 0, energySubClasses, dlt645.FormatXXXXXXdXX, energyExtras, logger)
	synthesizeGrid(c, demandList, dlt645.DI3MaxDemand, 1, demandSubClasses, dlt645.FormatXXdXXXX, demandExtras, logger)

	logger.Info("catalog bootstrap complete",
		zap.Int("entries", len(c.items)),
		zap.Int("energy_types_loaded", len(energyList)),
		zap.Int("demand_types_loaded", len(demandList)),
		zap.Int("variable_types_loaded", len(variableList)),
	)
	return c, nil
}

// settlementPrefix renders the name prefix for settlement period j:
// "(current)" for j=0, "(last j-th settlement period)" otherwise.
func settlementPrefix(j int) string {
	if j == 0 {
		return "(current) "
	}
	return fmt.Sprintf("(last %d-th settlement period) ", j)
}

// synthesizeGrid fills in the combinatorial DI space for one class:
// subClasses x items x settlements from list, plus len(extras) x
// settlements from the hard-coded extras set. di2Base is the DI2
// value of the first sub-class (0 for energy, 1 for demand, per the
// DI2 offset the demand class carries); subClasses is the class's own
// sub-class count (11 for energy, 10 for demand — they are not the
// same, so it is never read from a shared package constant).
func synthesizeGrid(c *Catalog, list []typeEntry, di3 byte, di2Base, subClasses int, format string, extras []uint32, logger *zap.Logger) {
	for j := 0; j < settlements; j++ {
		prefix := settlementPrefix(j)

		for s := 0; s < subClasses; s++ {
			for i := 0; i < items; i++ {
				idx := s*items + i
				if idx >= len(list) {
					continue
				}
				di2 := di2Base + s
				di1 := i
				di := dlt645.MakeDI(di3, byte(di2), byte(di1), byte(j))
				item := list[idx].toItem(prefix + list[idx].Name)
				item.DataFormat = format
				item.DI = di
				c.items[di] = item
			}
		}

		for k, extra := range extras {
			idx := subClasses*items + k
			if idx >= len(list) {
				logger.Warn("skipping extras entry beyond loaded type list",
					zap.Int("index", idx), zap.Int("loaded", len(list)))
				continue
			}
			di := (extra &^ 0xFF) | uint32(j)
			item := list[idx].toItem(prefix + list[idx].Name)
			item.DataFormat = format
			item.DI = di
			c.items[di] = item
		}
	}
}
