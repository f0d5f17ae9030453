package common

import (
	"strconv"
	"strings"
)

// ContentRange is the window of a collection returned in a response,
// as described by a header of the form "<unit> <first>-<last>/<total>"
type ContentRange struct {
	Unit  string
	First int
	Last  int
	Total int
}

// ParseContentRange reads a content range header.
// Anything that does not follow the grammar exactly is reported as not ok
func ParseContentRange(header string) (ContentRange, bool) {

	unit, window, found := strings.Cut(header, " ")
	if !found || unit == "" {
		return ContentRange{}, false
	}
	bounds, total, found := strings.Cut(window, "/")
	if !found {
		return ContentRange{}, false
	}
	first, last, found := strings.Cut(bounds, "-")
	if !found {
		return ContentRange{}, false
	}

	var cr ContentRange
	var ok bool
	cr.Unit = unit
	if cr.First, ok = parseIndex(first); !ok {
		return ContentRange{}, false
	}
	if cr.Last, ok = parseIndex(last); !ok {
		return ContentRange{}, false
	}
	if cr.Total, ok = parseIndex(total); !ok {
		return ContentRange{}, false
	}
	if cr.Last < cr.First {
		return ContentRange{}, false
	}
	return cr, true
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return value, true
}
