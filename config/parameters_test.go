package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.yaml")

	s, err := Load(path)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.FreeCommentsLimit)
	assert.Equal(t, 1, snap.ParseCommentsCost)
	assert.Equal(t, 5, snap.HistoryParseCost)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap, reloaded.Snapshot())
}

func TestSetPersistsAndCoercesByKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.yaml")
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("bot_token", "123:abc"))
	require.NoError(t, s.Set("free_comments_limit", "7"))

	got, ok := s.Get("bot_token")
	require.True(t, ok)
	assert.Equal(t, "123:abc", got)

	reloaded, err := Load(path)
	require.NoError(t, err)
	snap := reloaded.Snapshot()
	assert.Equal(t, "123:abc", snap.BotToken)
	assert.Equal(t, 7, snap.FreeCommentsLimit)
}

func TestSetRejectsNonIntegerForIntField(t *testing.T) {
	s := &Store{path: filepath.Join(t.TempDir(), "parameters.yaml"), params: defaults()}
	err := s.Set("free_comments_limit", "not-a-number")
	assert.Error(t, err)
}

func TestSetUnrecognisedKey(t *testing.T) {
	s := &Store{path: filepath.Join(t.TempDir(), "parameters.yaml"), params: defaults()}
	err := s.Set("does_not_exist", "value")
	assert.Error(t, err)
}

func TestRequiredChannelList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "@leads_chat", []string{"@leads_chat"}},
		{"multiple with spaces", "@a, @b ,@c", []string{"@a", "@b", "@c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Parameters{RequiredChannels: tc.raw}
			assert.Equal(t, tc.want, p.RequiredChannelList())
		})
	}
}
