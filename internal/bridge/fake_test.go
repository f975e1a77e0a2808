package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/mediabridge/mediabridge/internal/registry"
	"github.com/mediabridge/mediabridge/internal/transfer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("fake: not found")

// fakeRemote is an in-memory seedbox that records every call in order.
type fakeRemote struct {
	mu      sync.Mutex
	root    []Folder
	folders map[string]*Listing
	parent  map[string]string
	content map[string][]byte
	failing map[string]error
	// keepDeleted simulates a stale listing: deletes succeed but the folder
	// keeps showing up.
	keepDeleted bool
	calls       []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		folders: map[string]*Listing{},
		parent:  map[string]string{},
		content: map[string][]byte{},
		failing: map[string]error{},
	}
}

func (f *fakeRemote) addFolder(parentID, id, name, lastModified string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	folder := Folder{ID: id, Name: name, LastModified: lastModified}
	f.folders[id] = &Listing{ID: id, Name: name}
	f.parent[id] = parentID
	if parentID == "" {
		f.root = append(f.root, folder)
		return
	}
	f.folders[parentID].Folders = append(f.folders[parentID].Folders, folder)
}

func (f *fakeRemote) addFile(folderID, id, name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.content[id] = data
	l := f.folders[folderID]
	l.Files = append(l.Files, File{ID: id, Name: name, Size: int64(len(data)), LastModified: "t"})
}

func (f *fakeRemote) touch(id, lastModified string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	update := func(folders []Folder) {
		for i := range folders {
			if folders[i].ID == id {
				folders[i].LastModified = lastModified
			}
		}
	}
	update(f.root)
	if p := f.parent[id]; p != "" {
		update(f.folders[p].Folders)
	}
}

func (f *fakeRemote) failDownload(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failing, id)
		return
	}
	f.failing[id] = err
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeRemote) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeRemote) count(prefix string) int {
	n := 0
	for _, c := range f.recorded() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeRemote) ListRoot(context.Context) (*Listing, error) {
	f.record("list:root")
	f.mu.Lock()
	defer f.mu.Unlock()
	return &Listing{Folders: slices.Clone(f.root)}, nil
}

func (f *fakeRemote) ListFolder(_ context.Context, id string) (*Listing, error) {
	f.record("list:" + id)
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.folders[id]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", id, errNotFound)
	}
	return &Listing{
		ID:      l.ID,
		Name:    l.Name,
		Folders: slices.Clone(l.Folders),
		Files:   slices.Clone(l.Files),
	}, nil
}

func (f *fakeRemote) DownloadRange(_ context.Context, id string, start, end int64) (io.ReadCloser, error) {
	if start == 0 {
		f.record("download:" + id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failing[id]; err != nil {
		return nil, err
	}
	data, ok := f.content[id]
	if !ok {
		return nil, errNotFound
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

func (f *fakeRemote) DeleteFolder(_ context.Context, id string) error {
	f.record("delete:" + id)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.keepDeleted {
		return nil
	}
	drop := func(folders []Folder) []Folder {
		return slices.DeleteFunc(folders, func(x Folder) bool { return x.ID == id })
	}
	if p := f.parent[id]; p == "" {
		f.root = drop(f.root)
	} else if l, ok := f.folders[p]; ok {
		l.Folders = drop(l.Folders)
	}
	delete(f.folders, id)
	return nil
}

// recordingRegistry logs marks into the remote's call log so ordering can
// be asserted across both collaborators.
type recordingRegistry struct {
	*registry.Registry
	remote *fakeRemote
}

func (r *recordingRegistry) MarkProcessed(id, lastModified string) error {
	err := r.Registry.MarkProcessed(id, lastModified)
	if err == nil {
		r.remote.record("mark:" + id)
	}
	return err
}

type memStore struct {
	mu   sync.Mutex
	keys []registry.Key
	fail bool
}

func (m *memStore) Load() ([]registry.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.keys), nil
}

func (m *memStore) Save(_ registry.Key, all []registry.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.keys = slices.Clone(all)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *countingNotifier) Refresh(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type harness struct {
	remote   *fakeRemote
	store    *memStore
	registry *recordingRegistry
	notifier *countingNotifier
	fs       afero.Fs
	sync     *Synchronizer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		remote:   newFakeRemote(),
		store:    &memStore{},
		notifier: &countingNotifier{},
		fs:       afero.NewMemMapFs(),
	}
	h.reload(t, opts...)
	return h
}

// reload rebuilds the registry from its store, as a restarted process would.
func (h *harness) reload(t *testing.T, opts ...Option) {
	t.Helper()

	reg, err := registry.New(h.store)
	require.NoError(t, err)
	h.registry = &recordingRegistry{Registry: reg, remote: h.remote}

	dl := transfer.New(h.remote, transfer.WithFs(h.fs), transfer.WithWindow(transfer.MinWindow))
	opts = append([]Option{WithFs(h.fs)}, opts...)
	h.sync = New(h.remote, h.registry, dl, h.notifier, opts...)
}

func (h *harness) readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(h.fs, path)
	require.NoError(t, err)
	return string(data)
}
