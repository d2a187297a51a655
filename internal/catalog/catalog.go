// Package catalog names the public datasets the analysis expects and where
// to download them, so the fetch command can resolve short names instead of
// full URLs.
package catalog

import (
	"sort"
	"strings"
)

// Kind says which input slot a dataset fills.
type Kind string

const (
	Points   Kind = "points"
	Boundary Kind = "boundary"
)

// Dataset describes a known downloadable dataset.
type Dataset struct {
	Name        string // key used on the command line
	Description string
	URL         string
	Kind        Kind
}

// Datasets lists the known datasets.
var Datasets = []Dataset{
	{
		Name:        "oil-spills",
		Description: "CDFW Oil Spill Incident Tracking [ds394], point shapefile",
		URL:         "https://gis.data.ca.gov/datasets/CDFW::oil-spill-incident-tracking-ds394.zip",
		Kind:        Points,
	},
	{
		Name:        "us-counties",
		Description: "Census TIGER/Line county boundaries, polygon shapefile",
		URL:         "https://www2.census.gov/geo/tiger/TIGER2023/COUNTY/tl_2023_us_county.zip",
		Kind:        Boundary,
	},
	{
		Name:        "ca-counties",
		Description: "California county boundaries from the state geoportal",
		URL:         "https://gis.data.ca.gov/datasets/CDTFA::ca-county-boundaries.zip",
		Kind:        Boundary,
	},
}

// Lookup resolves a dataset by name, case-insensitively.
func Lookup(name string) (Dataset, bool) {
	for _, d := range Datasets {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Dataset{}, false
}

// Names returns the known dataset names, sorted.
func Names() []string {
	names := make([]string, 0, len(Datasets))
	for _, d := range Datasets {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
