package cart

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// OpKind names a cart operation.
type OpKind string

const (
	OpAdd               OpKind = "add"
	OpUpdateQuantity    OpKind = "update_quantity"
	OpRemove            OpKind = "remove"
	OpReplaceDimensions OpKind = "replace_dimensions"
)

// Op is one queued cart operation. Ref addresses the existing line for update,
// remove and replace; Item carries the payload for add and replace, and the
// repriced unit price for update when set.
type Op struct {
	Kind  OpKind
	Ref   Ref
	Item  Item
	Delta int
	Stock *int
	// Prepare, when set, builds the op to apply from the cart as it stands when the
	// op's turn comes, after earlier ops on the same line have applied. Until then
	// Kind, Ref and Item only need to identify the lines the op touches.
	Prepare func(ctx context.Context, c *Cart) (Op, error)
}

// addresses lists every line the op reads or writes.
func (o Op) addresses() []string {
	switch o.Kind {
	case OpAdd:
		return []string{o.Item.Ref().String()}
	case OpReplaceDimensions:
		if o.Item.Dimensions != nil {
			return []string{o.Ref.String(), o.Item.Ref().String()}
		}
	}
	return []string{o.Ref.String()}
}

// OpResult is the outcome of one op, at the op's input index.
type OpResult struct {
	Line Line
	Err  error
}

// Batch runs cart operations concurrently across distinct lines. Operations that
// touch the same line run one after another in caller order.
type Batch struct {
	Service     *Service
	Concurrency int
}

// Run executes ops against the snapshot and returns one result per op.
func (b Batch) Run(ctx context.Context, c *Cart, ops []Op) []OpResult {
	results := make([]OpResult, len(ops))
	g := new(errgroup.Group)
	if b.Concurrency > 0 {
		g.SetLimit(b.Concurrency)
	}
	for _, group := range groupOps(ops) {
		g.Go(func() error {
			for _, i := range group {
				if err := ctx.Err(); err != nil {
					results[i] = OpResult{Err: err}
					continue
				}
				op := ops[i]
				if op.Prepare != nil {
					prepared, err := op.Prepare(ctx, c)
					if err != nil {
						results[i] = OpResult{Err: err}
						continue
					}
					op = prepared
				}
				line, err := b.apply(ctx, c, op)
				results[i] = OpResult{Line: line, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (b Batch) apply(ctx context.Context, c *Cart, op Op) (Line, error) {
	switch op.Kind {
	case OpAdd:
		return b.Service.AddOrMerge(ctx, c, op.Item)
	case OpUpdateQuantity:
		if op.Item.ProductID != "" {
			return b.Service.RepriceQuantity(ctx, c, op.Ref, op.Delta, op.Stock, op.Item.UnitPrice)
		}
		return b.Service.UpdateQuantity(ctx, c, op.Ref, op.Delta, op.Stock)
	case OpRemove:
		return Line{}, b.Service.Remove(ctx, c, op.Ref)
	case OpReplaceDimensions:
		return b.Service.ReplaceDimensions(ctx, c, op.Ref, op.Item)
	default:
		return Line{}, fmt.Errorf("unknown cart op %q", op.Kind)
	}
}

// groupOps partitions op indexes so that ops sharing any line address land in the
// same group. Indexes within a group keep their input order.
func groupOps(ops []Op) [][]int {
	parent := make([]int, len(ops))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	owner := make(map[string]int)
	for i, op := range ops {
		for _, addr := range op.addresses() {
			if j, ok := owner[addr]; ok {
				parent[find(i)] = find(j)
				continue
			}
			owner[addr] = i
		}
	}

	var order []int
	groups := make(map[int][]int)
	for i := range ops {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}
	out := make([][]int, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}
