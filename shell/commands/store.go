package commands

import (
	"context"
	"sync"

	"github.com/acmeorder/acmeorder/acme/order"
	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OrderStore keeps one *order.Resource per order URL so that every command
// works with the same local view of an order.
type OrderStore struct {
	client order.Client
	log    logrus.FieldLogger

	mu     sync.Mutex
	orders map[string]*order.Resource
}

// NewOrderStore returns an empty store creating resources with client.
func NewOrderStore(client order.Client, log logrus.FieldLogger) *OrderStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OrderStore{
		client: client,
		log:    log,
		orders: map[string]*order.Resource{},
	}
}

// Add stores a Resource for the given order attributes and returns it.
func (s *OrderStore) Add(attrs resources.Order) (*order.Resource, error) {
	r, err := order.New(s.client, attrs, order.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.orders[r.URL()] = r
	s.mu.Unlock()
	return r, nil
}

// Get returns the stored Resource for url, fetching the order from the server
// the first time it is asked for.
func (s *OrderStore) Get(ctx context.Context, url string) (*order.Resource, error) {
	s.mu.Lock()
	r, ok := s.orders[url]
	s.mu.Unlock()
	if ok {
		return r, nil
	}

	attrs, err := s.client.FetchOrder(ctx, url)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, errors.Errorf("no order returned for %q", url)
	}
	attrs.URL = url
	return s.Add(*attrs)
}
