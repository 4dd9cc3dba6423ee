// Package query turns list-endpoint query strings into document-store
// filters, sort orders and pagination windows.
//
//	GET /api/products?category=print&price[gte]=10&price[lte]=50&sort=-price&page=2&limit=10
//	GET /api/images?search=sunset
package query

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/pkg/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	MaxLimit     = 100
)

// FieldType controls how filter values are coerced.
type FieldType int

const (
	String FieldType = iota
	Number
	Bool
	ID
)

// Schema lists the filterable and sortable fields of a collection.
type Schema struct {
	Fields map[string]FieldType
	// DefaultSort in query-string form, e.g. "-createdAt".
	DefaultSort string
}

// Query is a parsed list request.
type Query struct {
	Filter bson.M
	Sort   bson.D
	Search string
	Page   int
	Limit  int
}

// Skip is the number of documents before the current page.
func (q Query) Skip() int64 { return int64((q.Page - 1) * q.Limit) }

var reserved = map[string]bool{"select": true, "sort": true, "page": true, "limit": true, "search": true}

var opKey = regexp.MustCompile(`^([A-Za-z0-9_.]+)\[(gt|gte|lt|lte|in)\]$`)

// Parse builds a Query from values. Unknown fields are ignored; a value that
// cannot be coerced to its field's type is a validation error.
func Parse(values url.Values, schema Schema) (Query, error) {
	q := Query{
		Filter: bson.M{},
		Page:   positive(values.Get("page"), DefaultPage),
		Limit:  positive(values.Get("limit"), DefaultLimit),
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	sort := values.Get("sort")
	if sort == "" {
		sort = schema.DefaultSort
	}
	q.Sort = parseSort(sort, schema)

	if term := strings.TrimSpace(values.Get("search")); term != "" {
		q.Search = term
		q.Filter = bson.M{"$text": bson.M{"$search": term}}
		return q, nil
	}

	for key, vals := range values {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		raw := vals[0]

		field, op := key, ""
		if m := opKey.FindStringSubmatch(key); m != nil {
			field, op = m[1], m[2]
		}
		typ, ok := schema.Fields[field]
		if !ok {
			continue
		}

		if op == "" {
			v, err := coerce(field, raw, typ)
			if err != nil {
				return Query{}, err
			}
			mergeOp(q.Filter, field, "", v)
			continue
		}

		if op == "in" {
			parts := strings.Split(raw, ",")
			list := make([]interface{}, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p == "" {
					continue
				}
				v, err := coerce(field, p, typ)
				if err != nil {
					return Query{}, err
				}
				list = append(list, v)
			}
			mergeOp(q.Filter, field, "$in", list)
			continue
		}

		v, err := coerce(field, raw, typ)
		if err != nil {
			return Query{}, err
		}
		mergeOp(q.Filter, field, "$"+op, v)
	}

	return q, nil
}

func mergeOp(filter bson.M, field, op string, v interface{}) {
	if op == "" {
		if existing, ok := filter[field].(bson.M); ok {
			existing["$eq"] = v
			return
		}
		filter[field] = v
		return
	}
	existing, ok := filter[field].(bson.M)
	if !ok {
		existing = bson.M{}
		if prev, had := filter[field]; had {
			existing["$eq"] = prev
		}
		filter[field] = existing
	}
	existing[op] = v
}

func coerce(field, raw string, typ FieldType) (interface{}, error) {
	switch typ {
	case Number:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperr.Validation("Invalid value for %s", field)
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperr.Validation("Invalid value for %s", field)
		}
		return b, nil
	case ID:
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, apperr.Validation("Invalid value for %s", field)
		}
		return oid, nil
	}
	return raw, nil
}

func parseSort(raw string, schema Schema) bson.D {
	var out bson.D
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		if part == "" {
			continue
		}
		if _, ok := schema.Fields[part]; !ok && part != "createdAt" {
			continue
		}
		out = append(out, bson.E{Key: part, Value: dir})
	}
	return out
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Pagination is the page metadata returned with list responses.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

func NewPagination(q Query, total int64) Pagination {
	pages := int64(0)
	if q.Limit > 0 {
		pages = (total + int64(q.Limit) - 1) / int64(q.Limit)
	}
	return Pagination{
		Page:    q.Page,
		Limit:   q.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: int64(q.Page) < pages,
		HasPrev: q.Page > 1,
	}
}
