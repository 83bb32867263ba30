package tabular

import "encoding/json"

type namedTable struct {
	Name string `json:"name"`
	*Table
}

// MarshalJSON encodes the set as an array so the order survives.
func (s *Set) MarshalJSON() ([]byte, error) {
	out := make([]namedTable, 0, s.Len())
	s.Each(func(name string, t *Table) {
		out = append(out, namedTable{Name: name, Table: t})
	})
	return json.Marshal(out)
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var in []namedTable
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = *NewSet()
	for _, nt := range in {
		t := nt.Table
		if t == nil {
			t = &Table{}
		}
		s.Put(nt.Name, t)
	}
	return nil
}
