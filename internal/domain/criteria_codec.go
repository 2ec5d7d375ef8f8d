package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type criterionJSON struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Value  string   `json:"value,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Values []string `json:"values,omitempty"`
	Start  string   `json:"start,omitempty"`
	End    string   `json:"end,omitempty"`
}

func (c Criteria) MarshalJSON() ([]byte, error) {
	out := make([]criterionJSON, 0, len(c.entries))
	for _, e := range c.entries {
		row := criterionJSON{ID: e.ID}
		switch v := e.Value.(type) {
		case Exact:
			row.Type, row.Value = "exact", v.Value
		case Range:
			row.Type, row.Min, row.Max = "range", v.Min, v.Max
		case MultiSelect:
			row.Type, row.Values = "multi", v.Values
		case DateRange:
			row.Type = "dates"
			if v.Start != nil {
				row.Start = v.Start.Format(DateLayout)
			}
			if v.End != nil {
				row.End = v.End.Format(DateLayout)
			}
		case Text:
			row.Type, row.Value = "text", v.Term
		default:
			return nil, fmt.Errorf("criterion %q: unsupported type %T", e.ID, e.Value)
		}
		out = append(out, row)
	}
	return json.Marshal(out)
}

func (c *Criteria) UnmarshalJSON(data []byte) error {
	var rows []criterionJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	var out Criteria
	for _, row := range rows {
		var value Criterion
		switch row.Type {
		case "exact":
			value = Exact{Value: row.Value}
		case "range":
			value = Range{Min: row.Min, Max: row.Max}
		case "multi":
			value = MultiSelect{Values: row.Values}
		case "dates":
			value = ParseDateRange(row.Start, row.End)
		case "text":
			value = Text{Term: row.Value}
		default:
			return fmt.Errorf("criterion %q: unknown type %q", row.ID, row.Type)
		}
		out = out.Set(row.ID, value)
	}
	*c = out
	return nil
}

type SavedFilter struct {
	ID        string
	Kind      Kind
	Name      string
	Criteria  Criteria
	CreatedAt time.Time
}
