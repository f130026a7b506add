// Package delegates reads the delegate node set from etcd.
//
// Every node is a JSON models.Node stored under <prefix><address>. Nodes are
// ordered by key, so the first key is the submission target.
package delegates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"io"
	"log/slog"
	"slices"
	"time"
	"wallet/internal/models"
)

var ErrInvalidNode = errors.New("invalid delegate node")

// Sink receives the node set whenever it changes.
type Sink interface {
	SetDelegates(nodes []models.Node) error
}

type EtcdSource struct {
	kv      clientv3.KV
	watcher clientv3.Watcher
	closer  io.Closer
	prefix  string
	logger  *slog.Logger
}

func NewEtcdSource(endpoints []string, dialTimeout time.Duration, prefix string, logger *slog.Logger) (*EtcdSource, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create etcd client: %w", err)
	}

	s := newSource(cli, cli, prefix, logger)
	s.closer = cli
	return s, nil
}

func newSource(kv clientv3.KV, watcher clientv3.Watcher, prefix string, logger *slog.Logger) *EtcdSource {
	return &EtcdSource{
		kv:      kv,
		watcher: watcher,
		prefix:  prefix,
		logger:  logger,
	}
}

// Load returns the current node set.
func (s *EtcdSource) Load(ctx context.Context) ([]models.Node, error) {
	resp, err := s.kv.Get(ctx, s.prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
	)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.prefix, err)
	}

	kvs := slices.Clone(resp.Kvs)
	slices.SortStableFunc(kvs, func(a, b *mvccpb.KeyValue) int {
		return bytes.Compare(a.Key, b.Key)
	})

	values := make([][]byte, len(kvs))
	for i, kv := range kvs {
		values[i] = kv.Value
	}
	return decodeNodes(values, s.logger), nil
}

// Register stores node under the prefix.
func (s *EtcdSource) Register(ctx context.Context, node models.Node) error {
	if err := validateNode(node); err != nil {
		return err
	}

	data, err := json.Marshal(node)
	if err != nil {
		return err
	}

	if _, err := s.kv.Put(ctx, s.prefix+node.Address, string(data)); err != nil {
		return fmt.Errorf("put %s: %w", node.Address, err)
	}
	return nil
}

// Sync pushes the node set to sink now and after every change under the
// prefix, until ctx is done.
func (s *EtcdSource) Sync(ctx context.Context, sink Sink) error {
	if err := s.push(ctx, sink); err != nil {
		return err
	}

	rch := s.watcher.Watch(ctx, s.prefix, clientv3.WithPrefix())
	for wresp := range rch {
		if err := wresp.Err(); err != nil {
			return fmt.Errorf("watch %s: %w", s.prefix, err)
		}
		s.logger.Debug("delegates changed", "events", len(wresp.Events))
		if err := s.push(ctx, sink); err != nil {
			s.logger.Error("failed to update delegates", "error", err)
		}
	}
	return ctx.Err()
}

func (s *EtcdSource) push(ctx context.Context, sink Sink) error {
	nodes, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := sink.SetDelegates(nodes); err != nil {
		return err
	}
	s.logger.Info("delegates loaded", "count", len(nodes))
	return nil
}

func (s *EtcdSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// decodeNodes parses node records in order, skipping invalid records and
// repeated addresses.
func decodeNodes(values [][]byte, logger *slog.Logger) []models.Node {
	nodes := make([]models.Node, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, value := range values {
		var node models.Node
		if err := json.Unmarshal(value, &node); err != nil {
			logger.Warn("skipping delegate record", "error", err)
			continue
		}
		if err := validateNode(node); err != nil {
			logger.Warn("skipping delegate record", "error", err)
			continue
		}
		if _, ok := seen[node.Address]; ok {
			logger.Warn("skipping duplicate delegate", "address", node.Address)
			continue
		}
		seen[node.Address] = struct{}{}
		nodes = append(nodes, node)
	}
	return nodes
}

func validateNode(node models.Node) error {
	if node.Address == "" || node.Endpoint.Host == "" {
		return fmt.Errorf("%w: address and host are required", ErrInvalidNode)
	}
	return nil
}
