package xmlstream_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/weatherosm/internal/xmlstream"
)

func collect(t *testing.T, doc string) []xmlstream.Event {
	t.Helper()
	var events []xmlstream.Event
	err := xmlstream.Walk(strings.NewReader(doc), func(ev xmlstream.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestWalk_EventOrder(t *testing.T) {
	events := collect(t, `<?xml version="1.0"?><a x="1"><!-- skip --><b>hi</b><c/></a>`)

	kinds := make([]string, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind.String()+":"+ev.Name+ev.Text)
	}
	assert.Equal(t, []string{"start:a", "start:b", "text:hi", "end:b", "start:c", "end:c", "end:a"}, kinds)

	v, ok := events[0].Attr("x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestWalk_NamespacePrefixDropped(t *testing.T) {
	events := collect(t, `<rss xmlns:yweather="http://xml.weather.yahoo.com/ns/rss/1.0"><yweather:condition yweather:temp="70" code="32"/></rss>`)

	require.Len(t, events, 4)
	assert.Equal(t, "condition", events[1].Name)
	temp, ok := events[1].Attr("temp")
	assert.True(t, ok)
	assert.Equal(t, "70", temp)
}

func TestWalk_EntitiesDecoded(t *testing.T) {
	events := collect(t, `<city>Saint-Martin-d&apos;H&#232;res</city>`)
	require.Len(t, events, 3)
	assert.Equal(t, "Saint-Martin-d'Hères", events[1].Text)
}

func TestWalk_Malformed(t *testing.T) {
	err := xmlstream.Walk(strings.NewReader(`<a><b></a>`), func(xmlstream.Event) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, xmlstream.ErrMalformed)
}

func TestWalk_TruncatedDocument(t *testing.T) {
	err := xmlstream.Walk(strings.NewReader(`<a><b>text`), func(xmlstream.Event) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, xmlstream.ErrMalformed)
}

func TestWalk_ReaderError(t *testing.T) {
	boom := errors.New("connection reset")
	err := xmlstream.Walk(iotest.ErrReader(boom), func(xmlstream.Event) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, xmlstream.ErrMalformed)
}

func TestWalk_HandlerErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := xmlstream.Walk(strings.NewReader(`<a><b/><c/></a>`), func(xmlstream.Event) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestWalk_ReadErrorAfterPartialBody(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(`<a><b>partial`), iotest.ErrReader(boom))
	err := xmlstream.Walk(r, func(xmlstream.Event) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, xmlstream.ErrMalformed)
}

func TestWalk_Latin1Declaration(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><city>Gen\xe8ve</city>"
	events := collect(t, doc)
	require.Len(t, events, 3)
	assert.Equal(t, "Genève", events[1].Text)
}

func TestWalk_UnknownEncodingIsMalformed(t *testing.T) {
	doc := `<?xml version="1.0" encoding="x-no-such-charset"?><city>Paris</city>`
	err := xmlstream.Walk(strings.NewReader(doc), func(xmlstream.Event) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, xmlstream.ErrMalformed)
}
