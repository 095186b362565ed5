// Package xmlstream turns an XML document into a forward-only sequence of
// start-tag, text and end-tag events without building a tree.
package xmlstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ErrMalformed is returned (wrapped) when the input is not well-formed XML.
var ErrMalformed = errors.New("malformed xml")

// Kind identifies the type of an Event.
type Kind int

const (
	StartTag Kind = iota + 1
	Text
	EndTag
)

func (k Kind) String() string {
	switch k {
	case StartTag:
		return "start"
	case Text:
		return "text"
	case EndTag:
		return "end"
	default:
		return "unknown"
	}
}

// Event is a single token of the stream. Name is the local element name
// (namespace prefixes are dropped); Attrs is only set on StartTag and Text
// only on Text events.
type Event struct {
	Kind  Kind
	Name  string
	Attrs []xml.Attr
	Text  string
}

// Attr returns the value of the attribute with the given local name.
func (e Event) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Handler consumes events one at a time. Returning an error stops the walk.
type Handler func(Event) error

// sourceReader remembers the first non-EOF error returned by the underlying
// reader so decoder failures can be told apart from transport failures.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}
	return n, err
}

// Walk decodes r and calls fn for every start tag, text node and end tag, in
// document order. Comments, processing instructions and directives are
// skipped. Documents declaring a non-UTF-8 encoding are transcoded. Errors
// coming from r are returned wrapped as they are; every other decoding
// failure is wrapped in ErrMalformed.
func Walk(r io.Reader, fn Handler) error {
	src := &sourceReader{r: r}
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := dec.Token()
		if err != nil {
			if src.err != nil {
				return fmt.Errorf("reading xml: %w", err)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		var ev Event
		switch t := tok.(type) {
		case xml.StartElement:
			ev = Event{Kind: StartTag, Name: t.Name.Local, Attrs: t.Attr}
		case xml.EndElement:
			ev = Event{Kind: EndTag, Name: t.Name.Local}
		case xml.CharData:
			ev = Event{Kind: Text, Text: string(t)}
		default:
			continue
		}

		if err := fn(ev); err != nil {
			return err
		}
	}
}
