package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/acmeorder/acmeorder/acme/order"
	"github.com/pkg/errors"
)

// FindOrder resolves the order a command should act on. A URL given as the
// first leftover argument wins, then a non-negative index into the active
// account's orders. Otherwise the only order is used, or the user picks one.
func FindOrder(ctx context.Context, c *ishell.Context, leftovers []string, index int) (*order.Resource, error) {
	client := GetClient(c)
	store := GetOrders(c)

	if len(leftovers) > 0 {
		target := strings.TrimSpace(leftovers[0])
		if !OkURL(target) {
			return nil, errors.Errorf("%q is not an http or https URL", target)
		}
		return store.Get(ctx, target)
	}

	if client.ActiveAccount == nil || len(client.ActiveAccount.Orders) == 0 {
		return nil, errors.New("active account has no orders")
	}
	orderURLs := client.ActiveAccount.Orders

	if index >= 0 {
		orderURL, err := client.ActiveAccount.OrderURL(index)
		if err != nil {
			return nil, err
		}
		return store.Get(ctx, orderURL)
	}

	if len(orderURLs) == 1 {
		return store.Get(ctx, orderURLs[0])
	}

	orderList := make([]string, len(orderURLs))
	for i, orderURL := range orderURLs {
		orderList[i] = fmt.Sprintf("%3d)\t%#q", i, orderURL)
	}
	choice := c.MultiChoice(orderList, "Select an order")
	if choice < 0 {
		return nil, errors.New("no order selected")
	}
	return store.Get(ctx, orderURLs[choice])
}
