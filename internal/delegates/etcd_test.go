package delegates

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"wallet/internal/models"
)

const testPrefix = "/wallet/delegates/"

// fakeKV keeps keys in memory and answers Get in reverse key order.
type fakeKV struct {
	clientv3.KV

	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func (f *fakeKV) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}

	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		if strings.HasPrefix(k, key) {
			keys = append(keys, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	kvs := make([]*mvccpb.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(f.data[k])})
	}
	return &clientv3.GetResponse{Kvs: kvs}, nil
}

func (f *fakeKV) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.set(key, val)
	return &clientv3.PutResponse{}, nil
}

// fakeWatcher forwards responses sent on events until the watch context ends.
type fakeWatcher struct {
	clientv3.Watcher
	events chan clientv3.WatchResponse
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan clientv3.WatchResponse)}
}

func (w *fakeWatcher) Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan {
	out := make(chan clientv3.WatchResponse)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case resp := <-w.events:
				select {
				case out <- resp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	pushes [][]models.Node
	err    error
}

func (r *recordingSink) SetDelegates(nodes []models.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.pushes = append(r.pushes, nodes)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *recordingSink) last() []models.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes[len(r.pushes)-1]
}

func nodeJSON(t *testing.T, node models.Node) string {
	t.Helper()
	data, err := json.Marshal(node)
	require.NoError(t, err)
	return string(data)
}

var (
	nodeA = models.Node{Address: "a", Endpoint: models.Endpoint{Host: "10.0.0.1"}}
	nodeB = models.Node{Address: "b", Endpoint: models.Endpoint{Host: "10.0.0.2", Port: 2000}}
	nodeC = models.Node{Address: "c", Endpoint: models.Endpoint{Host: "10.0.0.3"}}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeNodes(t *testing.T) {
	values := [][]byte{
		[]byte(`{"address": "node-1", "endpoint": {"host": "10.0.0.1"}}`),
		[]byte(`not json`),
		[]byte(`{"address": "node-2", "endpoint": {"host": "10.0.0.2", "port": 2000}}`),
		[]byte(`{"address": "node-1", "endpoint": {"host": "10.0.0.3"}}`),
		[]byte(`{"address": "node-3"}`),
	}

	nodes := decodeNodes(values, discardLogger())

	assert.Equal(t, []models.Node{
		{Address: "node-1", Endpoint: models.Endpoint{Host: "10.0.0.1"}},
		{Address: "node-2", Endpoint: models.Endpoint{Host: "10.0.0.2", Port: 2000}},
	}, nodes)
}

func TestDecodeNodes_Empty(t *testing.T) {
	nodes := decodeNodes(nil, discardLogger())
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

func TestValidateNode(t *testing.T) {
	assert.NoError(t, validateNode(models.Node{Address: "a", Endpoint: models.Endpoint{Host: "h"}}))
	assert.ErrorIs(t, validateNode(models.Node{Address: "a"}), ErrInvalidNode)
	assert.ErrorIs(t, validateNode(models.Node{Endpoint: models.Endpoint{Host: "h"}}), ErrInvalidNode)
}

func TestLoad_SortsByKeyAndSkipsBadRecords(t *testing.T) {
	kv := newFakeKV()
	kv.set(testPrefix+"c", nodeJSON(t, nodeC))
	kv.set(testPrefix+"a", nodeJSON(t, nodeA))
	kv.set(testPrefix+"b", nodeJSON(t, nodeB))
	kv.set(testPrefix+"bad", "not json")
	kv.set("/other/x", nodeJSON(t, models.Node{Address: "x", Endpoint: models.Endpoint{Host: "h"}}))

	s := newSource(kv, newFakeWatcher(), testPrefix, discardLogger())
	nodes, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []models.Node{nodeA, nodeB, nodeC}, nodes)
}

func TestLoad_Error(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("etcd unavailable")

	s := newSource(kv, newFakeWatcher(), testPrefix, discardLogger())
	_, err := s.Load(context.Background())

	assert.ErrorContains(t, err, "etcd unavailable")
}

func TestRegister(t *testing.T) {
	kv := newFakeKV()
	s := newSource(kv, newFakeWatcher(), testPrefix, discardLogger())

	require.NoError(t, s.Register(context.Background(), nodeB))
	assert.ErrorIs(t, s.Register(context.Background(), models.Node{Address: "no-host"}), ErrInvalidNode)

	nodes, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Node{nodeB}, nodes)
	assert.Len(t, kv.data, 1)
}

func TestSync_PushesOnStartAndOnWatchEvents(t *testing.T) {
	kv := newFakeKV()
	kv.set(testPrefix+"b", nodeJSON(t, nodeB))
	watcher := newFakeWatcher()
	sink := &recordingSink{}
	s := newSource(kv, watcher, testPrefix, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Sync(ctx, sink) }()

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []models.Node{nodeB}, sink.last())

	kv.set(testPrefix+"a", nodeJSON(t, nodeA))
	watcher.events <- clientv3.WatchResponse{Events: []*clientv3.Event{{Type: clientv3.EventTypePut}}}

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []models.Node{nodeA, nodeB}, sink.last())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sync did not stop after cancel")
	}
}

func TestSync_WatchError(t *testing.T) {
	kv := newFakeKV()
	kv.set(testPrefix+"a", nodeJSON(t, nodeA))
	watcher := newFakeWatcher()
	sink := &recordingSink{}
	s := newSource(kv, watcher, testPrefix, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Sync(ctx, sink) }()

	watcher.events <- clientv3.WatchResponse{CompactRevision: 3}

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "watch "+testPrefix)
	case <-time.After(time.Second):
		t.Fatal("sync did not stop on watch error")
	}
	assert.Equal(t, 1, sink.count())
}

func TestSync_InitialPushFailure(t *testing.T) {
	kv := newFakeKV()
	kv.set(testPrefix+"a", nodeJSON(t, nodeA))
	sink := &recordingSink{err: errors.New("rejected")}
	s := newSource(kv, newFakeWatcher(), testPrefix, discardLogger())

	err := s.Sync(context.Background(), sink)

	assert.ErrorContains(t, err, "rejected")
	assert.Equal(t, 0, sink.count())
}

func TestClose_WithoutClient(t *testing.T) {
	s := newSource(newFakeKV(), newFakeWatcher(), testPrefix, discardLogger())
	assert.NoError(t, s.Close())
}
