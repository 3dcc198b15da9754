package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdent(t *testing.T) {
	tests := map[string]string{
		"OrderID":                      "orderid",
		"order_id":                     "orderid",
		"order-id":                     "orderid",
		"XMLParser":                    "xmlparser",
		"app.OrderItem":                "orderitem",
		"example.com/shop/model.Order": "order",
		"*app.Order_Item[T]":           "orderitem",
		"Dictionary<Key, Value>":       "dictionary",
		"Group[app.Shape]":             "group",
		"Größe":                        "größe",
		"":                             "",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeIdent(in), in)
	}
}
