package main

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/order-management-api/pkg/orderclient"
)

// parseItems parses "productId:qty" arguments. An optional "@orderItemId"
// suffix targets an existing item on update.
func parseItems(args []string) ([]orderclient.ItemRequest, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one item is required")
	}
	items := make([]orderclient.ItemRequest, 0, len(args))
	for _, arg := range args {
		item, err := parseItem(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "item %q", arg)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseItem(s string) (orderclient.ItemRequest, error) {
	var item orderclient.ItemRequest

	s, itemID, hasID := strings.Cut(s, "@")
	if hasID {
		id, err := strconv.Atoi(itemID)
		if err != nil {
			return item, errors.Wrap(err, "order item id")
		}
		item.OrderItemID = id
	}

	product, qty, ok := strings.Cut(s, ":")
	if !ok {
		return item, errors.New("want productId:qty")
	}
	var err error
	if item.ProductID, err = strconv.Atoi(product); err != nil {
		return item, errors.Wrap(err, "product id")
	}
	if item.Quantity, err = strconv.Atoi(qty); err != nil {
		return item, errors.Wrap(err, "quantity")
	}
	return item, nil
}
