package notes_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-go/internal/model"
	"notes-go/internal/notes"
	"notes-go/internal/testutil"
)

func sampleNotes() []model.Note {
	created := time.Date(2024, 3, 9, 14, 5, 7, 891_000_000, time.UTC)
	return []model.Note{
		{
			ID:        "a",
			Title:     "Groceries",
			Content:   "milk\neggs",
			Category:  "1",
			Tags:      []string{"home", "weekly"},
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Minute),
		},
		{
			ID:        "b",
			Title:     "Unicode ✓",
			Tags:      []string{},
			CreatedAt: created.Add(time.Second),
			UpdatedAt: created.Add(time.Second),
		},
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	for _, codec := range []notes.Codec{notes.JSONCodec{}, notes.YAMLCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			p := notes.NewPersistence(testutil.NewTestStorage(), codec, "", nil, nil)
			in := sampleNotes()
			cats := append(notes.DefaultCategories(), model.Category{ID: "x", Name: "Travel", Color: "#8B5CF6"})

			require.NoError(t, p.Save(in, cats))
			snap := p.Load()

			require.Len(t, snap.Notes, len(in))
			for i := range in {
				got, want := snap.Notes[i], in[i]
				assert.Equal(t, want.ID, got.ID)
				assert.Equal(t, want.Title, got.Title)
				assert.Equal(t, want.Content, got.Content)
				assert.Equal(t, want.Category, got.Category)
				assert.Equal(t, want.Tags, got.Tags)
				assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Millisecond)
				assert.WithinDuration(t, want.UpdatedAt, got.UpdatedAt, time.Millisecond)
			}
			assert.Equal(t, cats, snap.Categories)
		})
	}
}

func TestPersistence_LoadMissing(t *testing.T) {
	notifier := testutil.NewRecordingNotifier()
	p := notes.NewPersistence(testutil.NewTestStorage(), nil, "", nil, notifier)

	snap := p.Load()

	assert.Equal(t, notes.DefaultSnapshot(), snap)
	assert.NotNil(t, snap.Notes)
	assert.Empty(t, notifier.Errors(), "a missing blob is not an anomaly")
}

func TestPersistence_LoadMalformed(t *testing.T) {
	valid, err := notes.JSONCodec{}.Encode(notes.Snapshot{Notes: sampleNotes(), Categories: notes.DefaultCategories()})
	require.NoError(t, err)

	blobs := map[string][]byte{
		"truncated":      valid[:len(valid)/2],
		"not json":       []byte("<<<definitely not a snapshot>>>"),
		"empty":          {},
		"wrong shape":    []byte(`{"notes":"oops","categories":42}`),
		"bad timestamp":  []byte(`{"notes":[{"id":"a","createdAt":"yesterday"}]}`),
		"top-level list": []byte(`[1,2,3]`),
	}

	for name, blob := range blobs {
		t.Run(name, func(t *testing.T) {
			s := testutil.NewTestStorage()
			s.SetRaw(notes.DefaultStorageKey, blob)
			notifier := testutil.NewRecordingNotifier()
			p := notes.NewPersistence(s, nil, "", nil, notifier)

			var snap notes.Snapshot
			require.NotPanics(t, func() { snap = p.Load() })

			assert.Equal(t, notes.DefaultSnapshot(), snap)
			errs := notifier.Errors()
			require.Len(t, errs, 1)
			var perr *notes.PersistenceError
			require.ErrorAs(t, errs[0], &perr)
			assert.Equal(t, "load", perr.Op)
			assert.True(t, p.Writable(), "a malformed blob may be replaced")
		})
	}
}

func TestPersistence_LoadReadError(t *testing.T) {
	s := testutil.NewFailingStorage(testutil.NewTestStorage())
	s.FailGets(true)
	notifier := testutil.NewRecordingNotifier()
	p := notes.NewPersistence(s, nil, "", nil, notifier)

	snap := p.Load()

	assert.Equal(t, notes.DefaultSnapshot(), snap)
	require.Len(t, notifier.Errors(), 1)
	assert.True(t, errors.Is(notifier.Errors()[0], testutil.ErrInjected))

	assert.False(t, p.Writable())
	err := p.Save(nil, notes.DefaultCategories())
	assert.ErrorIs(t, err, notes.ErrUnreadSnapshot)
	assert.Zero(t, s.PutCalls())

	s.FailGets(false)
	p.Load()
	assert.True(t, p.Writable())
	assert.NoError(t, p.Save(nil, notes.DefaultCategories()))
}

func TestPersistence_LoadMissingFields(t *testing.T) {
	t.Run("missing categories keeps defaults", func(t *testing.T) {
		s := testutil.NewTestStorage()
		s.SetRaw(notes.DefaultStorageKey, []byte(`{"notes":[{"id":"a","title":"Only notes","tags":["t"]}]}`))

		snap := notes.NewPersistence(s, nil, "", nil, nil).Load()

		require.Len(t, snap.Notes, 1)
		assert.Equal(t, "Only notes", snap.Notes[0].Title)
		assert.Equal(t, notes.DefaultCategories(), snap.Categories)
	})

	t.Run("missing notes keeps empty default", func(t *testing.T) {
		s := testutil.NewTestStorage()
		s.SetRaw(notes.DefaultStorageKey, []byte(`{"categories":[{"id":"z","name":"Z","color":"#000000"}]}`))

		snap := notes.NewPersistence(s, nil, "", nil, nil).Load()

		assert.NotNil(t, snap.Notes)
		assert.Empty(t, snap.Notes)
		assert.Equal(t, []model.Category{{ID: "z", Name: "Z", Color: "#000000"}}, snap.Categories)
	})

	t.Run("explicit empty categories are kept", func(t *testing.T) {
		s := testutil.NewTestStorage()
		s.SetRaw(notes.DefaultStorageKey, []byte(`{"notes":[],"categories":[]}`))

		snap := notes.NewPersistence(s, nil, "", nil, nil).Load()

		assert.Empty(t, snap.Categories)
	})
}

func TestPersistence_LoadRepairs(t *testing.T) {
	s := testutil.NewTestStorage()
	s.SetRaw(notes.DefaultStorageKey, []byte(`{
		"notes": [
			{"id":"a","title":"first","createdAt":"2024-01-02T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"},
			{"id":"a","title":"duplicate"},
			{"id":"b","title":"no tags"}
		],
		"categories": [
			{"id":"1","name":"Personal","color":"#3B82F6"},
			{"id":"1","name":"Again","color":"#000000"}
		]
	}`))

	snap := notes.NewPersistence(s, nil, "", nil, nil).Load()

	require.Len(t, snap.Notes, 2)
	assert.Equal(t, "first", snap.Notes[0].Title)
	assert.True(t, snap.Notes[0].UpdatedAt.Equal(snap.Notes[0].CreatedAt))
	assert.NotNil(t, snap.Notes[1].Tags)
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, "Personal", snap.Categories[0].Name)
}

func TestPersistence_SaveFormat(t *testing.T) {
	s := testutil.NewTestStorage()
	p := notes.NewPersistence(s, notes.JSONCodec{}, "custom-key", nil, nil)

	require.NoError(t, p.Save(nil, nil))

	raw, ok := s.Raw("custom-key")
	require.True(t, ok)
	assert.JSONEq(t, `{"notes":[],"categories":[]}`, string(raw))
	assert.Equal(t, "custom-key", p.Key())
}

func TestPersistence_SaveTimestampsAreISO8601(t *testing.T) {
	s := testutil.NewTestStorage()
	p := notes.NewPersistence(s, nil, "", nil, nil)

	require.NoError(t, p.Save(sampleNotes()[:1], nil))

	raw, _ := s.Raw(notes.DefaultStorageKey)
	assert.Contains(t, string(raw), `"createdAt":"2024-03-09T14:05:07.891Z"`)
}

func TestPersistence_SaveFailure(t *testing.T) {
	s := testutil.NewFailingStorage(testutil.NewTestStorage())
	s.FailPuts(true)
	notifier := testutil.NewRecordingNotifier()
	p := notes.NewPersistence(s, nil, "", nil, notifier)

	err := p.Save(sampleNotes(), notes.DefaultCategories())

	var perr *notes.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.Len(t, notifier.Errors(), 1)
	assert.True(t, strings.Contains(err.Error(), notes.DefaultStorageKey))
}

func TestPersistence_EncryptedRoundTrip(t *testing.T) {
	inner := testutil.NewTestStorage()
	p := notes.NewPersistence(testutil.NewTestEncryptedStorage(t, inner), nil, "", nil, nil)

	require.NoError(t, p.Save(sampleNotes(), notes.DefaultCategories()))

	raw, _ := inner.Raw(notes.DefaultStorageKey)
	assert.False(t, bytes.HasPrefix(raw, []byte("{")), "stored blob should be ciphertext")

	snap := p.Load()
	assert.Len(t, snap.Notes, 2)
}

func TestPersistence_SQLiteRoundTrip(t *testing.T) {
	p := notes.NewPersistence(testutil.NewTestSQLiteStorage(t), notes.YAMLCodec{}, "", nil, nil)

	require.NoError(t, p.Save(sampleNotes(), notes.DefaultCategories()))

	snap := p.Load()
	require.Len(t, snap.Notes, 2)
	assert.Equal(t, "Groceries", snap.Notes[0].Title)
}
