// Package xmlstreamtest builds synthetic xmlstream events so handlers can be
// tested without real documents.
package xmlstreamtest

import (
	"encoding/xml"

	"github.com/neexbeast/weatherosm/internal/xmlstream"
)

// Start builds a StartTag event. Attributes are given as name/value pairs.
func Start(name string, attrs ...string) xmlstream.Event {
	ev := xmlstream.Event{Kind: xmlstream.StartTag, Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		ev.Attrs = append(ev.Attrs, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	return ev
}

// CharData builds a Text event.
func CharData(text string) xmlstream.Event {
	return xmlstream.Event{Kind: xmlstream.Text, Text: text}
}

// End builds an EndTag event.
func End(name string) xmlstream.Event {
	return xmlstream.Event{Kind: xmlstream.EndTag, Name: name}
}

// Replay feeds a fixed event sequence to fn.
func Replay(events []xmlstream.Event, fn xmlstream.Handler) error {
	for _, ev := range events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}
