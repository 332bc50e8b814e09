package store

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentuity/go-filecache/sys"
)

func sampleDocument() Document {
	return Document{
		"forever": {Value: json.RawMessage(`{"x":1}`), IsCompressed: sys.Ptr(false)},
		"live":    {Value: json.RawMessage(`"y"`), ExpiresAt: sys.Ptr(uint64(200))},
		"edge":    {Value: json.RawMessage(`true`), ExpiresAt: sys.Ptr(uint64(100))},
		"dead":    {Value: json.RawMessage(`[1,2]`), ExpiresAt: sys.Ptr(uint64(99))},
	}
}

func TestEntryExpired(t *testing.T) {
	doc := sampleDocument()
	assert.False(t, doc["forever"].Expired(1<<62))
	assert.False(t, doc["edge"].Expired(100))
	assert.True(t, doc["edge"].Expired(101))
	assert.True(t, doc["dead"].Expired(100))
}

func TestDocumentCounts(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, 3, doc.ActiveCount(100))
	assert.Equal(t, []string{"dead"}, doc.ExpiredKeys(100))
	assert.ElementsMatch(t, []string{"dead", "edge", "live"}, doc.ExpiredKeys(201))
	assert.Equal(t, 1, doc.ActiveCount(201))
}

func TestEntryCompressedFlag(t *testing.T) {
	assert.False(t, Entry{}.Compressed())
	assert.False(t, Entry{IsCompressed: sys.Ptr(false)}.Compressed())
	assert.True(t, Entry{IsCompressed: sys.Ptr(true)}.Compressed())
}

// exerciseStore runs the whole-document contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc)

	require.NoError(t, s.Save(ctx, sampleDocument()))
	doc, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc, 4)
	assert.JSONEq(t, `{"x":1}`, string(doc["forever"].Value))
	assert.Equal(t, uint64(200), *doc["live"].ExpiresAt)
	assert.Nil(t, doc["forever"].ExpiresAt)
	assert.False(t, doc["forever"].Compressed())

	delete(doc, "dead")
	require.NoError(t, s.Save(ctx, doc))
	doc, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc, 3)

	require.NoError(t, s.Save(ctx, nil))
	doc, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc)
	assert.NotEmpty(t, s.Location())
}
