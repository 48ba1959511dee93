package registry

import (
	"encoding/json"
	"fmt"
	"io"
)

// manifest is the subset of a version document the resolver needs.
type manifest struct {
	Name         string
	Version      string
	Dependencies map[string]string
	Order        []string // keys of Dependencies in document order
}

// decodeManifest reads a version document. The "dependencies" object is
// walked token by token so its declaration order survives; every other
// field is skipped.
func decodeManifest(r io.Reader) (*manifest, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	m := &manifest{Dependencies: make(map[string]string)}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "name":
			if err := decodeOptionalString(dec, &m.Name); err != nil {
				return nil, fmt.Errorf("name: %w", err)
			}
		case "version":
			if err := decodeOptionalString(dec, &m.Version); err != nil {
				return nil, fmt.Errorf("version: %w", err)
			}
		case "dependencies":
			if err := decodeDependencies(dec, m); err != nil {
				return nil, fmt.Errorf("dependencies: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeDependencies reads an ordered name -> range object. A null value
// means no dependencies. Values that are not strings keep their raw JSON
// text so the normalizer rejects them. Repeated keys keep their first
// position and last value.
func decodeDependencies(dec *json.Decoder, m *manifest) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var rng string
		if err := json.Unmarshal(raw, &rng); err != nil {
			rng = string(raw)
		}
		if _, seen := m.Dependencies[name]; !seen {
			m.Order = append(m.Order, name)
		}
		m.Dependencies[name] = rng
	}
	return expectDelim(dec, '}')
}

func decodeOptionalString(dec *json.Decoder, dst *string) error {
	var s *string
	if err := dec.Decode(&s); err != nil {
		return err
	}
	if s != nil {
		*dst = *s
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
