package pricing

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/tidwall/gjson"

	"github.com/tjfontaine/estimate-executor/internal/validate"
)

var treeSizePrices = map[string]*apd.Decimal{
	"1 gallon":   Dec("100"),
	"3 gallons":  Dec("186"),
	"7 gallons":  Dec("435"),
	"15 gallons": Dec("705"),
}

var treeSizes = []string{"1 gallon", "3 gallons", "7 gallons", "15 gallons"}

// treeDiscounts is indexed by tree count; counts past the end use the last entry.
var treeDiscounts = []*apd.Decimal{
	Dec("0"),
	Dec("0"),
	Dec("0.12"),
	Dec("0.18"),
	Dec("0.21"),
	Dec("0.22"),
	Dec("0.23"),
}

// TreePlanting prices planting a number of same-sized trees with a quantity
// discount.
type TreePlanting struct{}

func (TreePlanting) Key() string         { return "tree_planting" }
func (TreePlanting) DisplayName() string { return "Tree Planting" }

func (TreePlanting) Validate(args gjson.Result, name string) []string {
	return validate.Object(
		validate.Field("tree_size", validate.OneOf(treeSizes...)),
		validate.Field("number_of_trees", validate.WholeNumber(1)),
	)(args, name)
}

func (TreePlanting) BasePrice(args gjson.Result) (*apd.Decimal, error) {
	size := args.Get("tree_size").String()
	perTree, ok := treeSizePrices[size]
	if !ok {
		return nil, fmt.Errorf("unknown tree size %q", size)
	}
	count := args.Get("number_of_trees").Int()
	if count < 1 {
		return nil, fmt.Errorf("number of trees must be at least 1, got %d", count)
	}

	discount := treeDiscounts[min(count, int64(len(treeDiscounts)-1))]
	keep, err := sub(one, discount)
	if err != nil {
		return nil, err
	}
	subtotal, err := mul(perTree, apd.New(count, 0))
	if err != nil {
		return nil, err
	}
	return mul(subtotal, keep)
}

func (TreePlanting) Describe(args gjson.Result) []Detail {
	return []Detail{
		{Label: "Tree size", Value: args.Get("tree_size").String()},
		{Label: "Number of trees", Value: strconv.FormatInt(args.Get("number_of_trees").Int(), 10)},
	}
}

func (TreePlanting) DefaultArgs() json.RawMessage {
	return json.RawMessage(`{"tree_size":"3 gallons","number_of_trees":1}`)
}

// Services lists every service this build can quote.
func Services() []Service {
	return []Service{TreePlanting{}}
}
