package exec

import (
	"context"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/internal/planner"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

type createNodeCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.CreateNode
}

func (c *createNodeCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	props, err := evalProperties(ctx, c.ex, c.plan.Properties, row)
	if err != nil {
		return nil, false, err
	}
	id, err := c.ex.Backend.CreateNode(ctx, c.ex.Tx, c.plan.Labels, props)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	node, found, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, id)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	if !found {
		return nil, false, gerr.NewExecutionError("node vanished immediately after creation")
	}
	c.ex.Stats.NodesCreated++
	out := row.Clone()
	out[c.plan.Alias] = models.NodeValue(node)
	return out, true, nil
}

type createRelCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.CreateRel
}

func (c *createRelCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	srcVal, ok := row[c.plan.SrcAlias]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.SrcAlias)
	}
	dstVal, ok := row[c.plan.DstAlias]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.DstAlias)
	}
	srcNode, err := srcVal.AsNode()
	if err != nil {
		return nil, false, gerr.NewTypeError("Node", srcVal.TypeName())
	}
	dstNode, err := dstVal.AsNode()
	if err != nil {
		return nil, false, gerr.NewTypeError("Node", dstVal.TypeName())
	}
	props, err := evalProperties(ctx, c.ex, c.plan.Properties, row)
	if err != nil {
		return nil, false, err
	}
	id, err := c.ex.Backend.CreateRelationship(ctx, c.ex.Tx, srcNode.ID, dstNode.ID, c.plan.Type, props)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	c.ex.Stats.RelationshipsCreated++
	out := row.Clone()
	if c.plan.Alias != "" {
		rel, found, err := c.ex.Backend.GetRelationship(ctx, c.ex.Tx, id)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		if found {
			out[c.plan.Alias] = models.RelValue(rel)
		}
	}
	return out, true, nil
}

// mergeNodeCursor implements MERGE's node form: look for an exact
// property match under the given labels, else create one and run
// OnCreate, else run OnMatch on the existing node. It is a leaf operator
// since MERGE (n:Label {props}) has no input pattern of its own.
type mergeNodeCursor struct {
	ex   *Executor
	plan *planner.MergeNode
	done bool
}

func (c *mergeNodeCursor) Next(ctx context.Context) (Row, bool, error) {
	if c.done {
		return nil, false, nil
	}
	c.done = true

	matchProps, err := evalProperties(ctx, c.ex, c.plan.Properties, Row{})
	if err != nil {
		return nil, false, err
	}

	candidates, err := c.ex.Backend.AllNodes(ctx, c.ex.Tx)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}

	var match *models.Node
	for i := range candidates {
		n := candidates[i]
		if !hasAllLabels(n, c.plan.Labels) {
			continue
		}
		if propsMatch(n.Properties, matchProps) {
			match = &candidates[i]
			break
		}
	}

	if match == nil {
		id, err := c.ex.Backend.CreateNode(ctx, c.ex.Tx, c.plan.Labels, matchProps)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		c.ex.Stats.NodesCreated++
		node, _, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, id)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		row := Row{c.plan.Alias: models.NodeValue(node)}
		if err := c.applySetItems(ctx, id, c.plan.OnCreate, row); err != nil {
			return nil, false, err
		}
		node, _, err = c.ex.Backend.GetNode(ctx, c.ex.Tx, id)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		row[c.plan.Alias] = models.NodeValue(node)
		return row, true, nil
	}

	row := Row{c.plan.Alias: models.NodeValue(*match)}
	if err := c.applySetItems(ctx, match.ID, c.plan.OnMatch, row); err != nil {
		return nil, false, err
	}
	node, _, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, match.ID)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	row[c.plan.Alias] = models.NodeValue(node)
	return row, true, nil
}

func (c *mergeNodeCursor) applySetItems(ctx context.Context, id models.NodeID, items []planner.MergeSetItem, row Row) error {
	for _, item := range items {
		val, err := evalExpr(ctx, c.ex, item.Value, row)
		if err != nil {
			return err
		}
		if err := c.ex.Backend.SetNodeProperty(ctx, c.ex.Tx, id, item.Key, &val); err != nil {
			return gerr.NewStorageError(err.Error())
		}
		c.ex.Stats.PropertiesSet++
	}
	return nil
}

func hasAllLabels(n models.Node, labels []string) bool {
	for _, l := range labels {
		if !n.HasLabel(l) {
			return false
		}
	}
	return true
}

func propsMatch(have models.PropertyMap, want models.PropertyMap) bool {
	for k, v := range want {
		hv, ok := have[k]
		if !ok || !hv.Equal(v) {
			return false
		}
	}
	return true
}

type setPropertyCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.SetProperty
}

func (c *setPropertyCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, ok := row[c.plan.Variable]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.Variable)
	}
	node, isNode := tryNode(val)
	newVal, err := evalExpr(ctx, c.ex, c.plan.Value, row)
	if err != nil {
		return nil, false, err
	}
	if isNode {
		if err := c.ex.Backend.SetNodeProperty(ctx, c.ex.Tx, node.ID, c.plan.Key, &newVal); err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		c.ex.Stats.PropertiesSet++
		updated, _, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, node.ID)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		out := row.Clone()
		out[c.plan.Variable] = models.NodeValue(updated)
		return out, true, nil
	}
	rel, err := val.AsRelationship()
	if err != nil {
		return nil, false, gerr.NewTypeError("Node or Relationship", val.TypeName())
	}
	if err := c.ex.Backend.SetRelProperty(ctx, c.ex.Tx, rel.ID, c.plan.Key, &newVal); err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	c.ex.Stats.PropertiesSet++
	updated, _, err := c.ex.Backend.GetRelationship(ctx, c.ex.Tx, rel.ID)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	out := row.Clone()
	out[c.plan.Variable] = models.RelValue(updated)
	return out, true, nil
}

func tryNode(v models.Value) (models.Node, bool) {
	if v.Kind() != models.KindNode {
		return models.Node{}, false
	}
	n, _ := v.AsNode()
	return n, true
}

type removePropertyCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.RemoveProperty
}

func (c *removePropertyCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, ok := row[c.plan.Variable]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.Variable)
	}
	out := row.Clone()
	if node, isNode := tryNode(val); isNode {
		if err := c.ex.Backend.SetNodeProperty(ctx, c.ex.Tx, node.ID, c.plan.Key, nil); err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		updated, _, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, node.ID)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		out[c.plan.Variable] = models.NodeValue(updated)
		return out, true, nil
	}
	rel, err := val.AsRelationship()
	if err != nil {
		return nil, false, gerr.NewTypeError("Node or Relationship", val.TypeName())
	}
	if err := c.ex.Backend.SetRelProperty(ctx, c.ex.Tx, rel.ID, c.plan.Key, nil); err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	updated, _, err := c.ex.Backend.GetRelationship(ctx, c.ex.Tx, rel.ID)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	out[c.plan.Variable] = models.RelValue(updated)
	return out, true, nil
}

type removeLabelCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.RemoveLabel
}

func (c *removeLabelCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, ok := row[c.plan.Variable]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.Variable)
	}
	node, err := val.AsNode()
	if err != nil {
		return nil, false, gerr.NewTypeError("Node", val.TypeName())
	}
	if err := c.ex.Backend.RemoveLabel(ctx, c.ex.Tx, node.ID, c.plan.Label); err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	c.ex.Stats.LabelsRemoved++
	updated, _, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, node.ID)
	if err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	out := row.Clone()
	out[c.plan.Variable] = models.NodeValue(updated)
	return out, true, nil
}

type deleteNodeCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.DeleteNode
}

func (c *deleteNodeCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, ok := row[c.plan.Variable]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.Variable)
	}
	node, err := val.AsNode()
	if err != nil {
		return nil, false, gerr.NewTypeError("Node", val.TypeName())
	}
	if c.plan.Detach {
		if err := c.ex.Backend.DetachDeleteNode(ctx, c.ex.Tx, node.ID); err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
	} else {
		if err := c.ex.Backend.DeleteNode(ctx, c.ex.Tx, node.ID); err != nil {
			return nil, false, err
		}
	}
	c.ex.Stats.NodesDeleted++
	return row, true, nil
}

type deleteRelCursor struct {
	ex    *Executor
	input cursor
	plan  *planner.DeleteRel
}

func (c *deleteRelCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, ok := row[c.plan.Variable]
	if !ok {
		return nil, false, gerr.NewNotFound("binding " + c.plan.Variable)
	}
	rel, err := val.AsRelationship()
	if err != nil {
		return nil, false, gerr.NewTypeError("Relationship", val.TypeName())
	}
	if err := c.ex.Backend.DeleteRelationship(ctx, c.ex.Tx, rel.ID); err != nil {
		return nil, false, gerr.NewStorageError(err.Error())
	}
	c.ex.Stats.RelationshipsDeleted++
	return row, true, nil
}

type callProcedureCursor struct {
	ex      *Executor
	input   cursor
	plan    *planner.CallProcedure
	results []Row
	idx     int
	curRow  Row
}

func (c *callProcedureCursor) Next(ctx context.Context) (Row, bool, error) {
	for {
		if c.results != nil && c.idx < len(c.results) {
			out := c.curRow.Clone()
			for k, v := range c.results[c.idx] {
				out[k] = v
			}
			c.idx++
			return out, true, nil
		}
		row, ok, err := c.input.Next(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}
		c.curRow = row
		args := make([]models.Value, len(c.plan.Args))
		for i, a := range c.plan.Args {
			v, err := evalExpr(ctx, c.ex, a, row)
			if err != nil {
				return nil, false, err
			}
			args[i] = v
		}
		res, err := c.ex.Backend.CallProcedure(ctx, c.ex.Tx, c.plan.Name, args)
		if err != nil {
			return nil, false, gerr.NewNotFound("procedure " + c.plan.Name)
		}
		results := make([]Row, len(res.Rows))
		for i, r := range res.Rows {
			out := Row{}
			for j, col := range res.Columns {
				name := col
				if j < len(c.plan.Yields) && c.plan.Yields[j] != "" {
					name = c.plan.Yields[j]
				}
				out[name] = r[col]
			}
			results[i] = out
		}
		c.results = results
		c.idx = 0
	}
}

// schemaOpCursor runs CREATE/DROP INDEX and CREATE/DROP CONSTRAINT as a
// side-effecting leaf producing no rows. Constraints are modeled as
// unique indexes since the reference backend has no separate
// constraint store.
type schemaOpCursor struct {
	ex   *Executor
	plan *planner.SchemaOp
	done bool
}

func (c *schemaOpCursor) Next(ctx context.Context) (Row, bool, error) {
	if c.done {
		return nil, false, nil
	}
	c.done = true
	name := c.plan.Label + "." + c.plan.Property
	switch c.plan.Kind {
	case ast.SchemaCreateIndex:
		kind := storage.IndexBTree
		if c.plan.Unique {
			kind = storage.IndexUnique
		}
		if err := c.ex.Backend.CreateIndex(ctx, name, c.plan.Label, c.plan.Property, kind); err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
	case ast.SchemaCreateConstraint:
		if err := c.ex.Backend.CreateIndex(ctx, name, c.plan.Label, c.plan.Property, storage.IndexUnique); err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
	case ast.SchemaDropIndex, ast.SchemaDropConstraint:
		if err := c.ex.Backend.DropIndex(ctx, name); err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
	}
	return nil, false, nil
}
