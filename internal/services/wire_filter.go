package services

import (
	"strings"

	"corplandlords/wireboard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PublishedQuery selects published wires on the store side.
// Empty RequestType and empty Locations mean "no constraint".
type PublishedQuery struct {
	RequestType models.RequestType
	Locations   []string
}

// filter builds the store query: published, optional type, any-of locations.
func (q PublishedQuery) filter() bson.M {
	f := bson.M{"published": true}
	if q.RequestType != "" {
		f["requestType"] = string(q.RequestType)
	}
	if locs := cleanLocations(q.Locations); len(locs) > 0 {
		f["locations"] = bson.M{"$in": locs}
	}
	return f
}

// findOptions sorts newest first. The result is never truncated: refinements
// and paging run over the full matching set.
func (q PublishedQuery) findOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "time", Value: -1}, {Key: "_id", Value: -1}})
}

func cleanLocations(in []string) []string {
	var out []string
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ListingFilter is the full listing view filter: the store-side query plus the
// client-side refinements.
type ListingFilter struct {
	RequestType models.RequestType
	Locations   []string
	Search      string
	MinBudget   int64
}

// Query returns the store-side part of the filter.
func (f ListingFilter) Query() PublishedQuery {
	return PublishedQuery{RequestType: f.RequestType, Locations: f.Locations}
}

// SearchByIDSubstring keeps wires whose request identifier contains term,
// case-insensitively. A blank term returns the input unchanged.
func SearchByIDSubstring(wires []*models.Wire, term string) []*models.Wire {
	term = strings.ToUpper(strings.TrimSpace(term))
	if term == "" {
		return wires
	}
	out := make([]*models.Wire, 0, len(wires))
	for _, w := range wires {
		if strings.Contains(strings.ToUpper(w.RequestID), term) {
			out = append(out, w)
		}
	}
	return out
}

// RefineByMinBudget applies the minimum-budget threshold. It is a no-op unless
// minBudget > 0. Wires without both budget bounds (Joint Venture, no recorded
// variant, or a document missing either bound) and wires with both bounds zero
// are excluded; otherwise maxBudget must reach minBudget.
func RefineByMinBudget(wires []*models.Wire, minBudget int64) []*models.Wire {
	if minBudget <= 0 {
		return wires
	}
	out := make([]*models.Wire, 0, len(wires))
	for _, w := range wires {
		b, ok := w.Budget()
		if !ok || !b.Known() || b.IsEmpty() {
			continue
		}
		if b.Max >= minBudget {
			out = append(out, w)
		}
	}
	return out
}

// RefineListing applies the id search and then the budget threshold. Order is preserved.
func RefineListing(wires []*models.Wire, f ListingFilter) []*models.Wire {
	return RefineByMinBudget(SearchByIDSubstring(wires, f.Search), f.MinBudget)
}

// Page returns wires[offset:offset+limit], clamped to the slice. A non-positive
// limit returns everything from offset.
func Page(wires []*models.Wire, offset, limit int) []*models.Wire {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(wires) {
		return []*models.Wire{}
	}
	end := len(wires)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return wires[offset:end]
}
