package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the variants of FieldValue
type ValueKind int

const (
	KindPlain ValueKind = iota
	KindLinks
)

func (k ValueKind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindLinks:
		return "links"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// FieldValue is the value of one detail row: either plain text or a
// sequence of linked documents.
type FieldValue struct {
	kind ValueKind
	text string
	docs []LinkedDocument
}

// PlainValue wraps a plain text field
func PlainValue(text string) FieldValue {
	return FieldValue{kind: KindPlain, text: text}
}

// LinkSequence wraps an ordered list of linked documents
func LinkSequence(docs []LinkedDocument) FieldValue {
	if docs == nil {
		docs = []LinkedDocument{}
	}
	return FieldValue{kind: KindLinks, docs: docs}
}

func (v FieldValue) Kind() ValueKind { return v.kind }

// Text returns the plain text and true for plain values
func (v FieldValue) Text() (string, bool) {
	return v.text, v.kind == KindPlain
}

// Documents returns the linked documents and true for link sequences
func (v FieldValue) Documents() ([]LinkedDocument, bool) {
	return v.docs, v.kind == KindLinks
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.kind == KindLinks {
		return marshal(v.docs)
	}
	return marshal(v.text)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var docs []LinkedDocument
		if err := json.Unmarshal(data, &docs); err != nil {
			return err
		}
		*v = LinkSequence(docs)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("detail value must be a string or an array: %w", err)
	}
	*v = PlainValue(text)
	return nil
}

// DetailMap maps detail labels to values and remembers page order.
// The zero value is an empty map ready to use.
type DetailMap struct {
	labels []string
	values map[string]FieldValue
}

// Set stores value under label. An existing label keeps its position.
func (m *DetailMap) Set(label string, value FieldValue) {
	if m.values == nil {
		m.values = make(map[string]FieldValue)
	}
	if _, ok := m.values[label]; !ok {
		m.labels = append(m.labels, label)
	}
	m.values[label] = value
}

func (m DetailMap) Get(label string) (FieldValue, bool) {
	v, ok := m.values[label]
	return v, ok
}

func (m DetailMap) Len() int { return len(m.labels) }

// Labels returns the labels in page order
func (m DetailMap) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

func (m DetailMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range m.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshal(label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := m.values[label].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *DetailMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = DetailMap{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("details must be a JSON object, got %v", tok)
	}

	var out DetailMap
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected detail key %v", tok)
		}
		var value FieldValue
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("detail %q: %w", label, err)
		}
		out.Set(label, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// marshal encodes v without HTML escaping; callers that want escaping get
// it from the outer encoder.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
