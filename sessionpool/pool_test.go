package sessionpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialer struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (f *fakeDialer) dial(_ context.Context, cred Credential) (*Session, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cred.Name)
	fail := f.failing[cred.Name]
	f.mu.Unlock()

	if fail {
		return nil, errors.New("fake: connect refused")
	}
	return &Session{
		Name:       cred.Name,
		Credential: cred,
		stop: func(context.Context) error {
			return nil
		},
	}, nil
}

func testCreds(names ...string) []Credential {
	creds := make([]Credential, len(names))
	for i, n := range names {
		creds[i] = Credential{Name: n, AppID: 1, AppHash: "h"}
	}
	return creds
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestAcquireTransient_SkipsFailedCredential(t *testing.T) {
	fd := &fakeDialer{failing: map[string]bool{"bad": true}}
	p := newPool(t.TempDir(), KindHistory, discardLogger(), testCreds("bad", "good"), fd)

	session, err := p.AcquireTransient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", session.Name)

	// the failed credential must not remain marked in-use
	p.mu.Lock()
	inUse := p.inUse["bad"]
	p.mu.Unlock()
	assert.False(t, inUse)
}

func TestAcquireTransient_NoneAvailable(t *testing.T) {
	fd := &fakeDialer{failing: map[string]bool{"only": true}}
	p := newPool(t.TempDir(), KindHistory, discardLogger(), testCreds("only"), fd)

	_, err := p.AcquireTransient(context.Background())
	assert.ErrorIs(t, err, ErrNoSessionAvailable)
}

func TestAcquireTransient_DoesNotReturnCheckedOutCredential(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindHistory, discardLogger(), testCreds("solo"), fd)

	first, err := p.AcquireTransient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "solo", first.Name)

	_, err = p.AcquireTransient(context.Background())
	assert.ErrorIs(t, err, ErrNoSessionAvailable)

	require.NoError(t, p.ReleaseTransient(context.Background(), first))

	second, err := p.AcquireTransient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "solo", second.Name)
}

func TestChooseForChat_StableBinding(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindRealtime, discardLogger(), testCreds("s1"), fd)

	first, err := p.ChooseForChat(context.Background(), "@chat")
	require.NoError(t, err)
	second, err := p.ChooseForChat(context.Background(), "@chat")
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)

	// repeated lookups must not re-dial
	fd.mu.Lock()
	calls := len(fd.calls)
	fd.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestChooseForChat_PicksLeastLoaded(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindRealtime, discardLogger(), testCreds("s1", "s2"), fd)

	// Drive the real sequence: the first chat promotes one credential, the
	// second promotes the other (a fresh credential always beats an
	// already-loaded active session), so both sessions end up active without
	// calling promote() directly.
	first, err := p.ChooseForChat(context.Background(), "@a")
	require.NoError(t, err)
	second, err := p.ChooseForChat(context.Background(), "@b")
	require.NoError(t, err)
	require.NotEqual(t, first.Name, second.Name)

	// Load the second session further so it is no longer least-loaded.
	p.mu.Lock()
	p.sessionChats[second.Name]["@extra1"] = true
	p.sessionChats[second.Name]["@extra2"] = true
	p.mu.Unlock()

	chosen, err := p.ChooseForChat(context.Background(), "@c")
	require.NoError(t, err)
	assert.Equal(t, first.Name, chosen.Name)
}

// TestChooseForChat_SequentialAddsSplitEvenly drives spec.md §8 scenario 4
// directly: adding six chats one at a time over two empty sessions must
// split them 3/3, not pile all six onto whichever session promotes first.
func TestChooseForChat_SequentialAddsSplitEvenly(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindRealtime, discardLogger(), testCreds("s1", "s2"), fd)

	for _, chat := range []string{"@c1", "@c2", "@c3", "@c4", "@c5", "@c6"} {
		_, err := p.ChooseForChat(context.Background(), chat)
		require.NoError(t, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.sessionChats["s1"], 3)
	assert.Len(t, p.sessionChats["s2"], 3)
}

func TestChooseForChat_PromotesWhenNoneActive(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindRealtime, discardLogger(), testCreds("s1"), fd)

	chosen, err := p.ChooseForChat(context.Background(), "@new")
	require.NoError(t, err)
	assert.Equal(t, "s1", chosen.Name)

	p.mu.Lock()
	_, active := p.active["s1"]
	p.mu.Unlock()
	assert.True(t, active)
}

func TestOrphan_ClearsBindingsForReassignment(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindRealtime, discardLogger(), testCreds("s1"), fd)

	_, err := p.ChooseForChat(context.Background(), "@a")
	require.NoError(t, err)

	orphaned := p.Orphan("s1")
	assert.Equal(t, []string{"@a"}, orphaned)

	p.mu.Lock()
	_, stillActive := p.active["s1"]
	_, stillBound := p.chatSession["@a"]
	p.mu.Unlock()
	assert.False(t, stillActive)
	assert.False(t, stillBound)
}

func TestShutdown_ClearsBookkeeping(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindRealtime, discardLogger(), testCreds("s1", "s2"), fd)

	_, err := p.ChooseForChat(context.Background(), "@a")
	require.NoError(t, err)
	_, err = p.promote(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))

	info := p.ListInfo()
	for _, d := range info {
		assert.False(t, d.Active)
		assert.False(t, d.InUse)
		assert.Zero(t, d.BoundChats)
	}
}

func TestListInfo_ReflectsBookkeeping(t *testing.T) {
	fd := &fakeDialer{}
	p := newPool(t.TempDir(), KindHistory, discardLogger(), testCreds("s1"), fd)

	session, err := p.AcquireTransient(context.Background())
	require.NoError(t, err)
	defer p.ReleaseTransient(context.Background(), session)

	info := p.ListInfo()
	require.Len(t, info, 1)
	assert.Equal(t, "s1", info[0].Name)
	assert.True(t, info[0].InUse)
}
