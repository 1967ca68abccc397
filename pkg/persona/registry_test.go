package persona

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/constants"
	"github.com/kottzoltan/aivio/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuiltInsComplete(t *testing.T) {
	r := NewRegistry(nil)

	for _, s := range r.List() {
		p, err := r.Resolve(s.Key)
		require.NoError(t, err)
		assert.NotEmpty(t, p.Key)
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Intro)
		assert.NotEmpty(t, p.Instruction)
	}
}

func TestResolveUnknownKey(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Resolve("nonexistent_robot")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWriteOverrideMergePrecedence(t *testing.T) {
	r := NewRegistry(nil)

	original, err := r.Resolve(constants.PERSONA_SUPPORT)
	require.NoError(t, err)

	// Only the title is overridden; empty fields must not erase defaults.
	p, err := r.WriteOverride(constants.PERSONA_SUPPORT, OverrideRecord{Title: "  Ügyfélszolgálat v2  "})
	require.NoError(t, err)

	assert.Equal(t, "Ügyfélszolgálat v2", p.Title)
	assert.Equal(t, original.Intro, p.Intro)
	assert.Equal(t, original.Instruction, p.Instruction)

	resolved, err := r.Resolve(constants.PERSONA_SUPPORT)
	require.NoError(t, err)
	assert.Equal(t, "Ügyfélszolgálat v2", resolved.Title)
	assert.Equal(t, original.Intro, resolved.Intro)
}

func TestWriteOverrideEmptyFieldsKeepDefaults(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.WriteOverride(constants.PERSONA_DEMO, OverrideRecord{Intro: "Szia, új intro!"})
	require.NoError(t, err)

	// A later write with empty fields must not erase the earlier override
	// nor the built-in fields.
	p, err := r.WriteOverride(constants.PERSONA_DEMO, OverrideRecord{})
	require.NoError(t, err)
	assert.NotEmpty(t, p.Title)
	assert.NotEmpty(t, p.Instruction)
}

func TestWriteOverrideUnknownKey(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.WriteOverride("ghost", OverrideRecord{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListIdempotentAndOrdered(t *testing.T) {
	r := NewRegistry(nil)

	first := r.List()
	second := r.List()
	assert.Equal(t, first, second)

	require.NotEmpty(t, first)
	assert.Equal(t, constants.PERSONA_OUTBOUND_SALES, first[0].Key)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(constants.PERSONA_SUPPORT, OverrideRecord{Title: "Mentett"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Mentett", loaded[constants.PERSONA_SUPPORT].Title)

	// A fresh registry over the same store picks the override up.
	r := NewRegistry(store)
	p, err := r.Resolve(constants.PERSONA_SUPPORT)
	require.NoError(t, err)
	assert.Equal(t, "Mentett", p.Title)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

type failingStore struct{}

func (failingStore) Load() (map[string]OverrideRecord, error) {
	return nil, errors.New("backend down")
}

func (failingStore) Save(string, OverrideRecord) error {
	return errors.New("backend down")
}

func TestWriteOverrideSurvivesStoreFailure(t *testing.T) {
	r := NewRegistry(failingStore{})

	p, err := r.WriteOverride(constants.PERSONA_SUPPORT, OverrideRecord{Title: "Memóriában él"})
	require.NoError(t, err)
	assert.Equal(t, "Memóriában él", p.Title)

	resolved, err := r.Resolve(constants.PERSONA_SUPPORT)
	require.NoError(t, err)
	assert.Equal(t, "Memóriában él", resolved.Title)
}

// Concurrent resolves must never re-fill the cache with a persona older
// than the latest override write.
func TestResolveServesLatestOverrideUnderLoad(t *testing.T) {
	utils.InitGlobalCache(64, time.Minute)
	r := NewRegistry(nil)

	_, err := r.Resolve(constants.PERSONA_DEMO)
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = r.Resolve(constants.PERSONA_DEMO)
				}
			}
		}()
	}

	var want string
	for i := 0; i < 50; i++ {
		want = fmt.Sprintf("Demó v%d", i)
		_, err := r.WriteOverride(constants.PERSONA_DEMO, OverrideRecord{Title: want})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	p, err := r.Resolve(constants.PERSONA_DEMO)
	require.NoError(t, err)
	assert.Equal(t, want, p.Title)
}
