package fundamentals

import (
	"bytes"
	"encoding/json"
)

// CompanyKey is always the first entry of a Summary.
const CompanyKey = "Company"

// Summary maps metric names to their displayed values in page order.
type Summary struct {
	keys   []string
	values map[string]string
}

func NewSummary(company string) *Summary {
	s := &Summary{values: make(map[string]string)}
	s.Set(CompanyKey, company)
	return s
}

// Set adds or overwrites a metric. Overwriting keeps the original position.
func (s *Summary) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Summary) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Summary) Company() string {
	return s.values[CompanyKey]
}

func (s *Summary) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *Summary) Len() int {
	return len(s.keys)
}

func (s *Summary) Each(fn func(key, value string)) {
	for _, k := range s.keys {
		fn(k, s.values[k])
	}
}

// MarshalJSON writes an object whose keys keep page order.
func (s *Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
