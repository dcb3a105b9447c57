package kml

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorFor(t *testing.T) {
	a := &Item{Kind: KindNode, Name: "PART", Line: 3}
	b := &Item{Kind: KindNode, Name: "PART", Line: 9}

	var c Collector
	c.Warn(a, "first")
	c.Warn(b, "second")
	c.Warn(a, "Third Finding")
	c.Warn(nil, "detached")

	assert.Equal(t, 4, c.Len())
	require.Len(t, c.For(a), 2)
	assert.Equal(t, 3, c.For(a)[0].Line)
	assert.Equal(t, 0, c.Diagnostics[3].Line)
	assert.True(t, c.Contains("third finding"))
	assert.False(t, c.Contains("fourth"))

	assert.Equal(t, "line 9: second", c.Diagnostics[1].Error())
	assert.Equal(t, "detached", c.Diagnostics[3].Error())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	part := NewNode("PART")
	part.Line = 12
	require.NoError(t, part.Add(NewAttrib("name", "pod")))

	LogSink{Logger: logger}.Warn(part, "part not attached to parent part")
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="part not attached to parent part"`)
	assert.Contains(t, out, `item="PART (pod)"`)
	assert.Contains(t, out, "line=12")

	buf.Reset()
	LogSink{Logger: logger}.Warn(nil, "no item")
	assert.Contains(t, buf.String(), `msg="no item"`)
	assert.NotContains(t, buf.String(), "line=")
}

func TestTeeAndDiscard(t *testing.T) {
	var a, b Collector
	sink := Tee(&a, Discard, &b)
	sink.Warn(nil, "shared")

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())

	var got []string
	SinkFunc(func(_ *Item, msg string) { got = append(got, strings.ToUpper(msg)) }).Warn(nil, "x")
	assert.Equal(t, []string{"X"}, got)
}
