package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type record struct {
	AGS   string `json:"AGS"`
	Cases int    `json:"cases"`
}

func TestLoad_Missing(t *testing.T) {
	s := New(t.TempDir(), true)
	var v []record
	ok, err := s.Load(".rki.cache.json", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveThenLoad(t *testing.T) {
	s := New(t.TempDir(), true)
	in := []record{{AGS: "05370", Cases: 3}}
	require.NoError(t, s.Save(".rki.cache.json", in))

	var out []record
	ok, err := s.Load(".rki.cache.json", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("{"), 0o644))

	var v []record
	_, err := New(dir, true).Load("x.json", &v)
	assert.Error(t, err)
}

func TestDisabledStore(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, false)
	require.NoError(t, s.Save("x.json", []record{{AGS: "1"}}))

	_, err := os.Stat(filepath.Join(dir, "x.json"))
	assert.True(t, os.IsNotExist(err))

	var v []record
	ok, err := s.Load("x.json", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThrough_FetchesOnceThenReadsCache(t *testing.T) {
	s := New(t.TempDir(), true)
	calls := 0
	fetch := func(ctx context.Context) ([]record, error) {
		calls++
		return []record{{AGS: "09181", Cases: 7}}, nil
	}

	first, err := Through(context.Background(), s, "entry.json", fetch)
	require.NoError(t, err)
	second, err := Through(context.Background(), s, "entry.json", fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestThrough_FetchErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, true)
	_, err := Through(context.Background(), s, "entry.json", func(ctx context.Context) ([]record, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "entry.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestThrough_ObjectWrapper(t *testing.T) {
	s := New(t.TempDir(), true)
	type wrapper struct {
		Data []record `json:"data"`
	}
	_, err := Through(context.Background(), s, "obj.json", func(ctx context.Context) (wrapper, error) {
		return wrapper{Data: []record{{AGS: "1001"}}}, nil
	})
	require.NoError(t, err)

	var w wrapper
	ok, err := s.Load("obj.json", &w)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1001", w.Data[0].AGS)
}
