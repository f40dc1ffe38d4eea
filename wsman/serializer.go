package wsman

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Marshal writes env as XML. Namespace prefixes are declared once on the
// envelope root; only the namespaces used by populated fields are declared,
// plus xsd and xsi. A missing Header or Body is written empty.
func Marshal(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, &SerializationError{Op: "marshal", Err: errors.New("nil envelope")}
	}
	e := *env
	if e.Header == nil {
		e.Header = &Header{}
	}
	if e.Body == nil {
		e.Body = &Body{}
	}

	declared, err := usedNamespaces(&e)
	if err != nil {
		return nil, &SerializationError{Op: "marshal", Err: err}
	}

	raw, err := xml.Marshal(&e)
	if err != nil {
		return nil, &SerializationError{Op: "marshal", Err: err}
	}

	out, err := rewritePrefixes(raw, declared)
	if err != nil {
		return nil, &SerializationError{Op: "marshal", Err: err}
	}
	return out, nil
}

// Unmarshal parses a SOAP envelope. If the body carries a SOAP fault the
// parsed envelope is returned together with a *Fault error.
func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, &SerializationError{Op: "unmarshal", Err: err}
	}
	if env.Body != nil && env.Body.Fault != nil {
		return &env, env.Body.Fault.toFault()
	}
	return &env, nil
}

// rewritePrefixes re-encodes the output of xml.Marshal, which declares a
// default namespace on every element, using the fixed prefixes instead. The
// declarations for every namespace in declared are written on the root.
func rewritePrefixes(raw []byte, declared []string) ([]byte, error) {
	inScope := make(map[string]bool, len(declared))
	for _, ns := range declared {
		inScope[ns] = true
	}

	qualify := func(n xml.Name) (xml.Name, error) {
		switch n.Space {
		case "":
			return xml.Name{Local: n.Local}, nil
		case nsXML:
			return xml.Name{Local: "xml:" + n.Local}, nil
		}
		prefix, ok := namespacePrefixes[n.Space]
		if !ok {
			return xml.Name{}, fmt.Errorf("%w: %s (element %s)", ErrUnknownNamespace, n.Space, n.Local)
		}
		if !inScope[n.Space] {
			return xml.Name{}, fmt.Errorf("namespace %s used by %s is not declared", n.Space, n.Local)
		}
		return xml.Name{Local: prefix + ":" + n.Local}, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	root := true

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name, err := qualify(t.Name)
			if err != nil {
				return nil, err
			}
			attrs := make([]xml.Attr, 0, len(t.Attr)+len(declared))
			if root {
				for _, ns := range declared {
					attrs = append(attrs, xml.Attr{
						Name:  xml.Name{Local: "xmlns:" + namespacePrefixes[ns]},
						Value: ns,
					})
				}
				root = false
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				an, err := qualify(a.Name)
				if err != nil {
					return nil, err
				}
				attrs = append(attrs, xml.Attr{Name: an, Value: a.Value})
			}
			if err := enc.EncodeToken(xml.StartElement{Name: name, Attr: attrs}); err != nil {
				return nil, err
			}
		case xml.EndElement:
			name, err := qualify(t.Name)
			if err != nil {
				return nil, err
			}
			if err := enc.EncodeToken(xml.EndElement{Name: name}); err != nil {
				return nil, err
			}
		case xml.CharData:
			if err := enc.EncodeToken(t); err != nil {
				return nil, err
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
