package exec

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/cypher/token"
	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/internal/planner"
	"github.com/adaworld/graphdb/models"
)

// evalProperties evaluates a CREATE/MERGE property map against row,
// turning planner.CreateProperty pairs (already flattened from an
// ast.MapLiteral by the planner) into a models.PropertyMap ready for the
// storage layer.
func evalProperties(ctx context.Context, ex *Executor, props []planner.CreateProperty, row Row) (models.PropertyMap, error) {
	out := make(models.PropertyMap, len(props))
	for _, p := range props {
		v, err := evalExpr(ctx, ex, p.Value, row)
		if err != nil {
			return nil, err
		}
		out[p.Key] = v
	}
	return out, nil
}

// evalExpr evaluates one ast.Expr against the current row and query
// parameters: three-valued logic, null-propagating arithmetic and
// comparisons, and string/list coercions.
func evalExpr(ctx context.Context, ex *Executor, expr ast.Expr, row Row) (models.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return evalLiteral(ctx, ex, e, row)
	case *ast.MapLiteral:
		m := make(models.PropertyMap, len(e.Keys))
		for i, k := range e.Keys {
			v, err := evalExpr(ctx, ex, e.Values[i], row)
			if err != nil {
				return models.Value{}, err
			}
			m[k] = v
		}
		return models.Map(m), nil
	case *ast.Parameter:
		v, ok := ex.Params[e.Name]
		if !ok {
			return models.Value{}, gerr.NewParamMissing(e.Name)
		}
		return v, nil
	case *ast.Ident:
		v, ok := row[e.Name]
		if !ok {
			return models.Value{}, gerr.NewNotFound("binding " + e.Name)
		}
		return v, nil
	case *ast.PropertyAccess:
		target, err := evalExpr(ctx, ex, e.Target, row)
		if err != nil {
			return models.Value{}, err
		}
		return propertyOf(target, e.Key)
	case *ast.LabelTest:
		target, err := evalExpr(ctx, ex, e.Target, row)
		if err != nil {
			return models.Value{}, err
		}
		if target.IsNull() {
			return models.Null(), nil
		}
		node, err := target.AsNode()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Node", target.TypeName())
		}
		return models.Bool(node.HasLabel(e.Label)), nil
	case *ast.IndexAccess:
		target, err := evalExpr(ctx, ex, e.Target, row)
		if err != nil {
			return models.Value{}, err
		}
		idx, err := evalExpr(ctx, ex, e.Index, row)
		if err != nil {
			return models.Value{}, err
		}
		return indexInto(target, idx)
	case *ast.FuncCall:
		return evalFuncCall(ctx, ex, e, row)
	case *ast.UnaryOp:
		return evalUnary(ctx, ex, e, row)
	case *ast.BinaryOp:
		return evalBinary(ctx, ex, e, row)
	case *ast.NullCheck:
		v, err := evalExpr(ctx, ex, e.Operand, row)
		if err != nil {
			return models.Value{}, err
		}
		result := v.IsNull()
		if e.Negated {
			result = !result
		}
		return models.Bool(result), nil
	case *ast.InExpr:
		return evalIn(ctx, ex, e, row)
	case *ast.StringMatch:
		return evalStringMatch(ctx, ex, e, row)
	case *ast.CaseExpr:
		return evalCase(ctx, ex, e, row)
	case *ast.ListExpr:
		items := make([]models.Value, len(e.Items))
		for i, it := range e.Items {
			v, err := evalExpr(ctx, ex, it, row)
			if err != nil {
				return models.Value{}, err
			}
			items[i] = v
		}
		return models.List(items), nil
	default:
		return models.Value{}, gerr.NewExecutionError("unsupported expression node")
	}
}

func evalLiteral(ctx context.Context, ex *Executor, lit *ast.Literal, row Row) (models.Value, error) {
	switch lit.Kind {
	case ast.LitNull:
		return models.Null(), nil
	case ast.LitBool:
		return models.Bool(lit.Bool), nil
	case ast.LitInt:
		return models.Int(lit.Int), nil
	case ast.LitFloat:
		return models.Float(lit.Float), nil
	case ast.LitString:
		return models.String(lit.Str), nil
	case ast.LitList:
		items := make([]models.Value, len(lit.List))
		for i, it := range lit.List {
			v, err := evalExpr(ctx, ex, it, row)
			if err != nil {
				return models.Value{}, err
			}
			items[i] = v
		}
		return models.List(items), nil
	case ast.LitMap:
		return evalExpr(ctx, ex, lit.MapLit, row)
	default:
		return models.Null(), nil
	}
}

func propertyOf(target models.Value, key string) (models.Value, error) {
	switch target.Kind() {
	case models.KindNull:
		return models.Null(), nil
	case models.KindNode:
		n, _ := target.AsNode()
		v, ok := n.Properties[key]
		if !ok {
			return models.Null(), nil
		}
		return v, nil
	case models.KindRelationship:
		r, _ := target.AsRelationship()
		v, ok := r.Properties[key]
		if !ok {
			return models.Null(), nil
		}
		return v, nil
	case models.KindMap:
		m, _ := target.AsMap()
		v, ok := m[key]
		if !ok {
			return models.Null(), nil
		}
		return v, nil
	default:
		return models.Value{}, gerr.NewTypeError("Node, Relationship or Map", target.TypeName())
	}
}

func indexInto(target, idx models.Value) (models.Value, error) {
	if target.IsNull() || idx.IsNull() {
		return models.Null(), nil
	}
	switch target.Kind() {
	case models.KindList:
		items, _ := target.AsList()
		i, err := idx.AsInt()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Integer", idx.TypeName())
		}
		if i < 0 {
			i += int64(len(items))
		}
		if i < 0 || i >= int64(len(items)) {
			return models.Null(), nil
		}
		return items[i], nil
	case models.KindMap:
		key, err := idx.AsString()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("String", idx.TypeName())
		}
		return propertyOf(target, key)
	default:
		return models.Value{}, gerr.NewTypeError("List or Map", target.TypeName())
	}
}

func evalUnary(ctx context.Context, ex *Executor, e *ast.UnaryOp, row Row) (models.Value, error) {
	v, err := evalExpr(ctx, ex, e.Operand, row)
	if err != nil {
		return models.Value{}, err
	}
	switch e.Op {
	case token.DASH:
		if v.IsNull() {
			return models.Null(), nil
		}
		switch v.Kind() {
		case models.KindInt:
			i, _ := v.AsInt()
			return models.Int(-i), nil
		case models.KindFloat:
			f, _ := v.AsFloat()
			return models.Float(-f), nil
		default:
			return models.Value{}, gerr.NewTypeError("Integer or Float", v.TypeName())
		}
	case token.NOT:
		if v.IsNull() {
			return models.Null(), nil
		}
		b, err := v.AsBool()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Boolean", v.TypeName())
		}
		return models.Bool(!b), nil
	default:
		return models.Value{}, gerr.NewExecutionError("unsupported unary operator " + e.Op.String())
	}
}

func evalBinary(ctx context.Context, ex *Executor, e *ast.BinaryOp, row Row) (models.Value, error) {
	switch e.Op {
	case token.AND:
		return evalAnd(ctx, ex, e, row)
	case token.OR:
		return evalOr(ctx, ex, e, row)
	case token.XOR:
		return evalXor(ctx, ex, e, row)
	}

	left, err := evalExpr(ctx, ex, e.Left, row)
	if err != nil {
		return models.Value{}, err
	}
	right, err := evalExpr(ctx, ex, e.Right, row)
	if err != nil {
		return models.Value{}, err
	}

	switch e.Op {
	case token.PLUS:
		return evalPlus(left, right)
	case token.DASH:
		return arith(left, right, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case token.STAR:
		return arith(left, right, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case token.SLASH:
		if left.IsNull() || right.IsNull() {
			return models.Null(), nil
		}
		if left.Kind() == models.KindInt && right.Kind() == models.KindInt {
			r, _ := right.AsInt()
			if r == 0 {
				return models.Value{}, gerr.NewExecutionError("division by zero")
			}
			l, _ := left.AsInt()
			return models.Int(l / r), nil
		}
		lf, err := left.AsFloat()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Integer or Float", left.TypeName())
		}
		rf, err := right.AsFloat()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Integer or Float", right.TypeName())
		}
		if rf == 0 {
			return models.Value{}, gerr.NewExecutionError("division by zero")
		}
		return models.Float(lf / rf), nil
	case token.PERCENT:
		if left.IsNull() || right.IsNull() {
			return models.Null(), nil
		}
		l, err := left.AsInt()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Integer", left.TypeName())
		}
		r, err := right.AsInt()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Integer", right.TypeName())
		}
		if r == 0 {
			return models.Value{}, gerr.NewExecutionError("modulo by zero")
		}
		return models.Int(l % r), nil
	case token.CARET:
		return evalPower(left, right)
	case token.EQ:
		return compareEq(left, right, false)
	case token.NEQ:
		return compareEq(left, right, true)
	case token.LT, token.LTE, token.GT, token.GTE:
		return compareOrdered(left, right, e.Op)
	default:
		return models.Value{}, gerr.NewExecutionError("unsupported binary operator " + e.Op.String())
	}
}

// evalAnd/evalOr implement SQL-style three-valued logic: a known
// false short-circuits AND to false regardless of the other operand's
// nullity, and a known true short-circuits OR to true.
func evalAnd(ctx context.Context, ex *Executor, e *ast.BinaryOp, row Row) (models.Value, error) {
	left, err := evalExpr(ctx, ex, e.Left, row)
	if err != nil {
		return models.Value{}, err
	}
	if lv, known := left.Truthy(); known && !lv {
		return models.Bool(false), nil
	}
	right, err := evalExpr(ctx, ex, e.Right, row)
	if err != nil {
		return models.Value{}, err
	}
	if rv, known := right.Truthy(); known && !rv {
		return models.Bool(false), nil
	}
	lv, lknown := left.Truthy()
	rv, rknown := right.Truthy()
	if lknown && rknown {
		return models.Bool(lv && rv), nil
	}
	return models.Null(), nil
}

func evalOr(ctx context.Context, ex *Executor, e *ast.BinaryOp, row Row) (models.Value, error) {
	left, err := evalExpr(ctx, ex, e.Left, row)
	if err != nil {
		return models.Value{}, err
	}
	if lv, known := left.Truthy(); known && lv {
		return models.Bool(true), nil
	}
	right, err := evalExpr(ctx, ex, e.Right, row)
	if err != nil {
		return models.Value{}, err
	}
	if rv, known := right.Truthy(); known && rv {
		return models.Bool(true), nil
	}
	lv, lknown := left.Truthy()
	rv, rknown := right.Truthy()
	if lknown && rknown {
		return models.Bool(lv || rv), nil
	}
	return models.Null(), nil
}

func evalXor(ctx context.Context, ex *Executor, e *ast.BinaryOp, row Row) (models.Value, error) {
	left, err := evalExpr(ctx, ex, e.Left, row)
	if err != nil {
		return models.Value{}, err
	}
	right, err := evalExpr(ctx, ex, e.Right, row)
	if err != nil {
		return models.Value{}, err
	}
	lv, lknown := left.Truthy()
	rv, rknown := right.Truthy()
	if !lknown || !rknown {
		return models.Null(), nil
	}
	return models.Bool(lv != rv), nil
}

func evalPlus(left, right models.Value) (models.Value, error) {
	if left.IsNull() || right.IsNull() {
		return models.Null(), nil
	}
	if left.Kind() == models.KindString || right.Kind() == models.KindString {
		return models.String(left.String() + right.String()), nil
	}
	if left.Kind() == models.KindList || right.Kind() == models.KindList {
		var items []models.Value
		if left.Kind() == models.KindList {
			l, _ := left.AsList()
			items = append(items, l...)
		} else {
			items = append(items, left)
		}
		if right.Kind() == models.KindList {
			r, _ := right.AsList()
			items = append(items, r...)
		} else {
			items = append(items, right)
		}
		return models.List(items), nil
	}
	return arith(left, right, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
}

func arith(left, right models.Value, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) (models.Value, error) {
	if left.IsNull() || right.IsNull() {
		return models.Null(), nil
	}
	if left.Kind() == models.KindInt && right.Kind() == models.KindInt {
		l, _ := left.AsInt()
		r, _ := right.AsInt()
		return models.Int(intOp(l, r)), nil
	}
	lf, err := left.AsFloat()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("Integer or Float", left.TypeName())
	}
	rf, err := right.AsFloat()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("Integer or Float", right.TypeName())
	}
	return models.Float(floatOp(lf, rf)), nil
}

func evalPower(left, right models.Value) (models.Value, error) {
	if left.IsNull() || right.IsNull() {
		return models.Null(), nil
	}
	lf, err := left.AsFloat()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("Integer or Float", left.TypeName())
	}
	rf, err := right.AsFloat()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("Integer or Float", right.TypeName())
	}
	return models.Float(math.Pow(lf, rf)), nil
}

func compareEq(left, right models.Value, negate bool) (models.Value, error) {
	if left.IsNull() || right.IsNull() {
		return models.Null(), nil
	}
	eq := left.Equal(right)
	if left.IsNumeric() && right.IsNumeric() && !eq {
		c, err := left.Compare(right)
		if err == nil && c == 0 {
			eq = true
		}
	}
	if negate {
		eq = !eq
	}
	return models.Bool(eq), nil
}

func compareOrdered(left, right models.Value, op token.Kind) (models.Value, error) {
	if left.IsNull() || right.IsNull() {
		return models.Null(), nil
	}
	c, err := left.Compare(right)
	if err != nil {
		return models.Value{}, gerr.NewTypeError(left.TypeName(), right.TypeName())
	}
	switch op {
	case token.LT:
		return models.Bool(c < 0), nil
	case token.LTE:
		return models.Bool(c <= 0), nil
	case token.GT:
		return models.Bool(c > 0), nil
	case token.GTE:
		return models.Bool(c >= 0), nil
	default:
		return models.Value{}, gerr.NewExecutionError("unsupported comparison operator " + op.String())
	}
}

func evalIn(ctx context.Context, ex *Executor, e *ast.InExpr, row Row) (models.Value, error) {
	operand, err := evalExpr(ctx, ex, e.Operand, row)
	if err != nil {
		return models.Value{}, err
	}
	listVal, err := evalExpr(ctx, ex, e.List, row)
	if err != nil {
		return models.Value{}, err
	}
	if listVal.IsNull() {
		return models.Null(), nil
	}
	items, err := listVal.AsList()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("List", listVal.TypeName())
	}
	if operand.IsNull() {
		return models.Null(), nil
	}
	sawNull := false
	for _, item := range items {
		if item.IsNull() {
			sawNull = true
			continue
		}
		if operand.Equal(item) {
			return models.Bool(true), nil
		}
	}
	if sawNull {
		return models.Null(), nil
	}
	return models.Bool(false), nil
}

func evalStringMatch(ctx context.Context, ex *Executor, e *ast.StringMatch, row Row) (models.Value, error) {
	operand, err := evalExpr(ctx, ex, e.Operand, row)
	if err != nil {
		return models.Value{}, err
	}
	pattern, err := evalExpr(ctx, ex, e.Pattern, row)
	if err != nil {
		return models.Value{}, err
	}
	if operand.IsNull() || pattern.IsNull() {
		return models.Null(), nil
	}
	s, err := operand.AsString()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("String", operand.TypeName())
	}
	p, err := pattern.AsString()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("String", pattern.TypeName())
	}
	switch e.Op {
	case ast.MatchStartsWith:
		return models.Bool(strings.HasPrefix(s, p)), nil
	case ast.MatchEndsWith:
		return models.Bool(strings.HasSuffix(s, p)), nil
	case ast.MatchContains:
		return models.Bool(strings.Contains(s, p)), nil
	case ast.MatchRegex:
		re, err := regexp.Compile(p)
		if err != nil {
			return models.Value{}, gerr.NewSyntaxError(e.Position, "invalid regular expression: "+err.Error())
		}
		return models.Bool(re.MatchString(s)), nil
	default:
		return models.Value{}, gerr.NewExecutionError("unsupported string match operator")
	}
}

// evalFuncCall evaluates the scalar function surface. Aggregator names
// (count/sum/avg/min/max/collect) never reach here: the
// planner rewrites any RETURN/WITH item containing one into an
// Aggregate operator, which evaluates its argument expressions itself.
func evalFuncCall(ctx context.Context, ex *Executor, e *ast.FuncCall, row Row) (models.Value, error) {
	name := strings.ToLower(e.Name)
	if aggregatorNamesContain(name) {
		return models.Value{}, gerr.NewPlanError("aggregate function " + e.Name + " used outside an aggregating context")
	}

	args := make([]models.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := evalExpr(ctx, ex, a, row)
		if err != nil {
			return models.Value{}, err
		}
		args[i] = v
	}

	switch name {
	case "coalesce":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return models.Null(), nil
	case "id":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("id() takes exactly one argument")
		}
		switch args[0].Kind() {
		case models.KindNode:
			n, _ := args[0].AsNode()
			return models.Int(int64(n.ID)), nil
		case models.KindRelationship:
			r, _ := args[0].AsRelationship()
			return models.Int(int64(r.ID)), nil
		default:
			return models.Value{}, gerr.NewTypeError("Node or Relationship", args[0].TypeName())
		}
	case "type":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("type() takes exactly one argument")
		}
		r, err := args[0].AsRelationship()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Relationship", args[0].TypeName())
		}
		return models.String(r.Type), nil
	case "labels":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("labels() takes exactly one argument")
		}
		n, err := args[0].AsNode()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Node", args[0].TypeName())
		}
		items := make([]models.Value, len(n.Labels))
		for i, l := range n.Labels {
			items[i] = models.String(l)
		}
		return models.List(items), nil
	case "keys":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("keys() takes exactly one argument")
		}
		var m models.PropertyMap
		switch args[0].Kind() {
		case models.KindNode:
			n, _ := args[0].AsNode()
			m = n.Properties
		case models.KindRelationship:
			r, _ := args[0].AsRelationship()
			m = r.Properties
		case models.KindMap:
			m, _ = args[0].AsMap()
		default:
			return models.Value{}, gerr.NewTypeError("Node, Relationship or Map", args[0].TypeName())
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]models.Value, len(keys))
		for i, k := range keys {
			items[i] = models.String(k)
		}
		return models.List(items), nil
	case "size":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("size() takes exactly one argument")
		}
		switch args[0].Kind() {
		case models.KindList:
			items, _ := args[0].AsList()
			return models.Int(int64(len(items))), nil
		case models.KindString:
			s, _ := args[0].AsString()
			return models.Int(int64(len(s))), nil
		case models.KindNull:
			return models.Null(), nil
		default:
			return models.Value{}, gerr.NewTypeError("List or String", args[0].TypeName())
		}
	case "length":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("length() takes exactly one argument")
		}
		p, err := args[0].AsPath()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Path", args[0].TypeName())
		}
		return models.Int(int64(len(p.Relationships))), nil
	case "tostring":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("toString() takes exactly one argument")
		}
		if args[0].IsNull() {
			return models.Null(), nil
		}
		return models.String(args[0].String()), nil
	case "tointeger":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("toInteger() takes exactly one argument")
		}
		return toInteger(args[0])
	case "tofloat":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("toFloat() takes exactly one argument")
		}
		if args[0].IsNull() {
			return models.Null(), nil
		}
		f, err := args[0].AsFloat()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("Integer or Float", args[0].TypeName())
		}
		return models.Float(f), nil
	case "tobooleanornull", "toboolean":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError(e.Name + "() takes exactly one argument")
		}
		if args[0].IsNull() {
			return models.Null(), nil
		}
		if args[0].Kind() == models.KindBool {
			return args[0], nil
		}
		s, err := args[0].AsString()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("String or Boolean", args[0].TypeName())
		}
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return models.Null(), nil
		}
		return models.Bool(b), nil
	case "abs":
		return numericUnary(args, math.Abs, func(i int64) int64 {
			if i < 0 {
				return -i
			}
			return i
		})
	case "ceil":
		return floatUnary(args, math.Ceil)
	case "floor":
		return floatUnary(args, math.Floor)
	case "sqrt":
		return floatUnary(args, math.Sqrt)
	case "round":
		return floatUnary(args, math.Round)
	case "sign":
		return floatUnary(args, func(f float64) float64 {
			switch {
			case f > 0:
				return 1
			case f < 0:
				return -1
			default:
				return 0
			}
		})
	case "tolower":
		return stringUnary(args, strings.ToLower)
	case "toupper":
		return stringUnary(args, strings.ToUpper)
	case "trim":
		return stringUnary(args, strings.TrimSpace)
	case "reverse":
		if len(args) != 1 {
			return models.Value{}, gerr.NewExecutionError("reverse() takes exactly one argument")
		}
		if args[0].IsNull() {
			return models.Null(), nil
		}
		s, err := args[0].AsString()
		if err != nil {
			return models.Value{}, gerr.NewTypeError("String", args[0].TypeName())
		}
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return models.String(string(r)), nil
	default:
		return models.Value{}, gerr.NewPlanError("unknown function " + e.Name)
	}
}

func aggregatorNamesContain(name string) bool {
	switch name {
	case "count", "sum", "avg", "min", "max", "collect":
		return true
	default:
		return false
	}
}

func toInteger(v models.Value) (models.Value, error) {
	if v.IsNull() {
		return models.Null(), nil
	}
	switch v.Kind() {
	case models.KindInt:
		return v, nil
	case models.KindFloat:
		f, _ := v.AsFloat()
		return models.Int(int64(f)), nil
	case models.KindString:
		s, _ := v.AsString()
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return models.Null(), nil
		}
		return models.Int(i), nil
	default:
		return models.Value{}, gerr.NewTypeError("Integer, Float or String", v.TypeName())
	}
}

func numericUnary(args []models.Value, floatFn func(float64) float64, intFn func(int64) int64) (models.Value, error) {
	if len(args) != 1 {
		return models.Value{}, gerr.NewExecutionError("expected exactly one argument")
	}
	v := args[0]
	if v.IsNull() {
		return models.Null(), nil
	}
	if v.Kind() == models.KindInt {
		i, _ := v.AsInt()
		return models.Int(intFn(i)), nil
	}
	f, err := v.AsFloat()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("Integer or Float", v.TypeName())
	}
	return models.Float(floatFn(f)), nil
}

func floatUnary(args []models.Value, fn func(float64) float64) (models.Value, error) {
	if len(args) != 1 {
		return models.Value{}, gerr.NewExecutionError("expected exactly one argument")
	}
	v := args[0]
	if v.IsNull() {
		return models.Null(), nil
	}
	f, err := v.AsFloat()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("Integer or Float", v.TypeName())
	}
	return models.Float(fn(f)), nil
}

func stringUnary(args []models.Value, fn func(string) string) (models.Value, error) {
	if len(args) != 1 {
		return models.Value{}, gerr.NewExecutionError("expected exactly one argument")
	}
	v := args[0]
	if v.IsNull() {
		return models.Null(), nil
	}
	s, err := v.AsString()
	if err != nil {
		return models.Value{}, gerr.NewTypeError("String", v.TypeName())
	}
	return models.String(fn(s)), nil
}

func evalCase(ctx context.Context, ex *Executor, e *ast.CaseExpr, row Row) (models.Value, error) {
	var testVal models.Value
	hasTest := e.Test != nil
	if hasTest {
		v, err := evalExpr(ctx, ex, e.Test, row)
		if err != nil {
			return models.Value{}, err
		}
		testVal = v
	}
	for _, w := range e.Whens {
		whenVal, err := evalExpr(ctx, ex, w.When, row)
		if err != nil {
			return models.Value{}, err
		}
		matched := false
		if hasTest {
			matched = !testVal.IsNull() && !whenVal.IsNull() && testVal.Equal(whenVal)
		} else {
			truth, known := whenVal.Truthy()
			matched = known && truth
		}
		if matched {
			return evalExpr(ctx, ex, w.Then, row)
		}
	}
	if e.Else != nil {
		return evalExpr(ctx, ex, e.Else, row)
	}
	return models.Null(), nil
}
