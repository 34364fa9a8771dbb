package simplyanalytics

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/simplyanalytics/internal/domain"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders results by one field. It marshals to [direction, field].
type Sort struct {
	Direction Direction
	Field     Node
}

// Ascending sorts by field in ascending order.
func Ascending(field Node) Sort { return Sort{Direction: Asc, Field: field} }

// Descending sorts by field in descending order.
func Descending(field Node) Sort { return Sort{Direction: Desc, Field: field} }

// MarshalJSON implements json.Marshaler.
func (s Sort) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Direction, s.Field})
}

// Slice selects the result window [Start, End). It marshals to [start, end].
type Slice struct {
	Start int
	End   int
}

// MarshalJSON implements json.Marshaler.
func (s Slice) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// Hit is one attribute record. Its keys are the requested fields.
type Hit = map[string]any

// AttributesRequest is the payload of the attributes resource.
type AttributesRequest struct {
	Where  Node     `json:"where,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Sort   []Sort   `json:"sort,omitempty"`
	Slice  *Slice   `json:"slice,omitempty"`
}

// LocationsRequest is the payload of the locations resource.
type LocationsRequest struct {
	Select []Node `json:"select,omitempty"`
	Where  Node   `json:"where,omitempty"`
	Sort   []Sort `json:"sort,omitempty"`
	Slice  *Slice `json:"slice,omitempty"`
}

// GetAttributes queries the attributes resource and returns its hits.
// A response without a hits field fails with ErrMalformedResponse.
func (c *Client) GetAttributes(ctx context.Context, req AttributesRequest) ([]Hit, error) {
	raw, err := c.Query(ctx, domain.ViewGet, domain.ResourceAttributes, req)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, domain.NewMalformedResponse(domain.ResourceAttributes, "hits", err)
	}
	hitsRaw, ok := envelope["hits"]
	if !ok {
		return nil, domain.NewMalformedResponse(domain.ResourceAttributes, "hits", nil)
	}

	var hits []Hit
	if err := json.Unmarshal(hitsRaw, &hits); err != nil {
		return nil, domain.NewMalformedResponse(domain.ResourceAttributes, "hits", err)
	}
	if hits == nil {
		hits = []Hit{}
	}
	return hits, nil
}

// GetLocations queries the locations resource and returns the response
// unmodified. Its shape follows the request's select, sort and slice.
func (c *Client) GetLocations(ctx context.Context, req LocationsRequest) (json.RawMessage, error) {
	return c.Query(ctx, domain.ViewGet, domain.ResourceLocations, req)
}
