package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
	r.AddAttrs(attrs...)
	return r
}

func TestColorTextHandlerKindIsColoredByValue(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, true)

	require.NoError(t, h.Handle(context.Background(), newRecord("wrote object", Kind("pack"))))

	out := buf.String()
	assert.Contains(t, out, "kind=")
	assert.Contains(t, out, colorCyan+"pack"+colorReset)
}

func TestColorTextHandlerCacheHitRendersAsHitMiss(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, true)

	require.NoError(t, h.Handle(context.Background(), newRecord("read object", CacheHit(true))))
	assert.Contains(t, buf.String(), "cache_hit="+colorGreen+"hit"+colorReset)

	buf.Reset()
	require.NoError(t, h.Handle(context.Background(), newRecord("read object", CacheHit(false))))
	assert.Contains(t, buf.String(), "cache_hit="+colorYellow+"miss"+colorReset)
}

func TestColorTextHandlerObjectIDIsAbbreviated(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, false)

	long := "abcdefghijklmnopqrstuvwxyz234567"
	require.NoError(t, h.Handle(context.Background(), newRecord("read object", ObjectID(long))))

	assert.Contains(t, buf.String(), "object_id=abcdefgh")
	assert.NotContains(t, buf.String(), long)
}

func TestColorTextHandlerNoColorOmitsEscapeCodes(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, false)

	require.NoError(t, h.Handle(context.Background(), newRecord("msg", Kind("snapshot"), CacheHit(true))))

	assert.False(t, strings.Contains(buf.String(), "\033["))
	assert.Contains(t, buf.String(), "kind=snapshot")
	assert.Contains(t, buf.String(), "cache_hit=hit")
}

func TestColorTextHandlerOtherKeysFallBackToFormatValue(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, false)

	require.NoError(t, h.Handle(context.Background(), newRecord("msg", Size(1024), Count(3))))

	assert.Contains(t, buf.String(), "size=1024")
	assert.Contains(t, buf.String(), "count=3")
}

func TestShortenObjectID(t *testing.T) {
	assert.Equal(t, "abcdefgh", shortenObjectID("abcdefghijklmnop"))
	assert.Equal(t, "short", shortenObjectID("short"))
}
