package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// flexID accepts either a JSON string or a JSON number as an identifier.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type wireNode struct {
	ID      flexID  `json:"id"`
	ActorID flexID  `json:"actor_id"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
}

// Older data endpoints send the endpoint index in source/target and the
// identity in source_id/target_id.
type wireLink struct {
	Source   flexID  `json:"source"`
	SourceID flexID  `json:"source_id"`
	Target   flexID  `json:"target"`
	TargetID flexID  `json:"target_id"`
	Value    float64 `json:"value"`
}

type wireDataset struct {
	Nodes []wireNode `json:"nodes"`
	Links []wireLink `json:"links"`
}

// Decode reads a dataset from its JSON wire form. Links are not resolved.
func Decode(r io.Reader) (*Dataset, error) {
	var w wireDataset
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	ds := &Dataset{
		Nodes: make([]*Node, 0, len(w.Nodes)),
		Links: make([]*Link, 0, len(w.Links)),
	}
	for _, wn := range w.Nodes {
		id := wn.ID
		if id == "" {
			id = wn.ActorID
		}
		ds.Nodes = append(ds.Nodes, &Node{ID: string(id), Name: wn.Name, Value: wn.Value})
	}
	for _, wl := range w.Links {
		src, dst := wl.SourceID, wl.TargetID
		if src == "" {
			src = wl.Source
		}
		if dst == "" {
			dst = wl.Target
		}
		ds.Links = append(ds.Links, &Link{SourceID: string(src), TargetID: string(dst), Value: wl.Value})
	}
	return ds, nil
}

// DecodeDetails reads the detail records of a participant lookup.
func DecodeDetails(r io.Reader) ([]DetailRecord, error) {
	var records []DetailRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	if records == nil {
		records = []DetailRecord{}
	}
	return records, nil
}

// FormatID renders a numeric store identifier as a node id.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
