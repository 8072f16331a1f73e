package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Restaurant is one entry of the restaurant listing. The upstream object is
// kept verbatim so persistence writes exactly what the API returned.
type Restaurant struct {
	// ID is the canonical identifier, empty when the upstream object has none.
	ID   string
	Name string
	raw  json.RawMessage
}

// NewRestaurant builds a restaurant that serializes as {"id": ..., "name": ...}.
func NewRestaurant(id, name string) Restaurant {
	return Restaurant{ID: id, Name: name}
}

// HasID reports whether the restaurant carries a usable identifier.
func (r Restaurant) HasID() bool {
	return r.ID != ""
}

// Raw returns the upstream JSON object.
func (r Restaurant) Raw() json.RawMessage {
	return r.raw
}

// UnmarshalJSON captures the raw object and extracts id and name. Identifiers
// that are null, zero, empty strings, or booleans are treated as missing.
func (r *Restaurant) UnmarshalJSON(data []byte) error {
	var probe struct {
		ID   any `json:"id"`
		Name any `json:"name"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return fmt.Errorf("decode restaurant: %w", err)
	}
	r.ID = canonicalID(probe.ID)
	if name, ok := probe.Name.(string); ok {
		r.Name = name
	} else {
		r.Name = ""
	}
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the upstream object unchanged when available.
func (r Restaurant) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	var id any = r.ID
	if _, err := strconv.ParseInt(r.ID, 10, 64); err == nil {
		id = json.Number(r.ID)
	} else if r.ID == "" {
		id = nil
	}
	return json.Marshal(struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
	}{ID: id, Name: r.Name})
}

func canonicalID(value any) string {
	switch v := value.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case string:
		return v
	default:
		return ""
	}
}

// MenuRecord is the menu of one restaurant for one slot. MenuData is the
// upstream response body, passed through untouched.
type MenuRecord struct {
	RestaurantID   string          `json:"restaurant_id"`
	RestaurantName string          `json:"restaurant_name"`
	MenuData       json.RawMessage `json:"menu_data"`
}
