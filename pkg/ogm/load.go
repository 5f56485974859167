package ogm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/schema"
)

// Unlimited removes the result bound on Find.
const Unlimited = -1

// Get loads exactly one instance of typ by its identifying value. Zero
// matches fail with *NotFoundError.
func (s *Store) Get(ctx context.Context, typ *schema.Type, id any) (*Node, error) {
	nodes, err := s.Find(ctx, typ, id, 1)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// Find loads instances of typ, filtered to one identifying value unless id
// is nil. A zero limit means one; Unlimited removes the bound. With a
// limit of one, zero matches fail with *NotFoundError; any other limit
// returns a possibly-empty slice.
func (s *Store) Find(ctx context.Context, typ *schema.Type, id any, limit int) ([]*Node, error) {
	if typ == nil {
		return nil, fmt.Errorf("ogm: find: nil type")
	}
	if limit == 0 {
		limit = 1
	}
	q := cypher.NewQuery()
	alias := q.NodeAlias()
	key, expr := "", ""
	if id != nil {
		bound := id
		if typ.Kind() == schema.KindProperty {
			encoded, err := typ.EncodeValue(id)
			if err != nil {
				return nil, err
			}
			bound = encoded
		}
		key, expr = typ.Key(), "$"+q.Arg(bound)
	}
	q.Append("MATCH " + q.Pattern(alias, typ.Labels(), key, expr))
	q.Carry(alias)

	tmp := s.project(q, typ, alias, false, map[string]bool{typ.Name(): true})
	q.Append("RETURN " + tmp + " AS node")
	if limit > 0 {
		q.Append(fmt.Sprintf("LIMIT %d", limit))
	}

	s.log.Debug("load statement built",
		slog.String("type", typ.Name()),
		slog.Int("args", len(q.Args())),
		slog.String("cypher", q.Text()))

	records, err := q.Execute(ctx, s.runner)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && limit == 1 {
		return nil, &NotFoundError{Label: typ.Name(), ID: id}
	}
	out := make([]*Node, 0, len(records))
	for _, rec := range records {
		raw, ok := rec.Get("node")
		if !ok {
			return nil, fmt.Errorf("ogm: find %s: row missing projection", typ.Name())
		}
		node, ok := s.decode(raw).(*Node)
		if !ok {
			return nil, fmt.Errorf("ogm: find %s: row did not decode to a node", typ.Name())
		}
		out = append(out, node)
	}
	return out, nil
}

// Resolve materializes a deferred reference through the load path,
// honoring its result limit.
func (s *Store) Resolve(ctx context.Context, d *Deferred) ([]*Node, error) {
	if d == nil {
		return nil, fmt.Errorf("ogm: resolve: nil reference")
	}
	limit := d.Limit
	if limit == 0 {
		limit = 1
	}
	return s.Find(ctx, d.Target, d.ID, limit)
}

// project stages the map projection for alias, an instance of typ, and
// returns the temporary the map is bound to. guarded marks an alias
// introduced by an OPTIONAL MATCH, whose fold must yield null rather than
// a map of nulls. path holds the type names already being projected above
// this level; a relationship targeting one of them is projected as
// terminal so cyclic structural models terminate.
//
// Terminal targets project their identifying scalar (singular relation)
// or a collected list of deferred-reference records (list relation); list
// relations are never expanded into full subgraphs. Structural targets
// recurse one level, collected first when list-valued. Each aggregation
// stage re-asserts only the variables still required downstream.
func (s *Store) project(q *cypher.Query, typ *schema.Type, alias string, guarded bool, path map[string]bool) string {
	entries := []string{
		fmt.Sprintf("`%s`: labels(%s)", classField, alias),
		fmt.Sprintf("%s: %s.%s", typ.Key(), alias, typ.Key()),
	}
	consumed := []string{alias}

	for _, rel := range typ.Model() {
		structural := rel.Target.Model() != nil && !path[rel.Target.Name()]
		optional := rel.Optional || rel.List || guarded
		match := "MATCH"
		if optional {
			match = "OPTIONAL MATCH"
		}
		child := q.NodeAlias()
		q.Append(fmt.Sprintf("%s (%s)-[:%s]->%s",
			match, alias, rel.Label, q.Pattern(child, rel.Target.Labels(), "", "")))

		switch {
		case !structural && !rel.List:
			q.Carry(child)
			entries = append(entries, fmt.Sprintf("%s: %s.%s", rel.Field, child, rel.Target.Key()))
			consumed = append(consumed, child)
		case !structural && rel.List:
			tmp := q.TmpAlias()
			q.Append(fmt.Sprintf("WITH %s, [x IN collect(DISTINCT %s) | {`%s`: '%s', class: '%s', %s: x.%s}] AS %s",
				q.CarryList(), child, classField, deferredClass,
				rel.Target.Name(), rel.Target.Key(), rel.Target.Key(), tmp))
			q.Carry(tmp)
			entries = append(entries, fmt.Sprintf("%s: %s", rel.Field, tmp))
			consumed = append(consumed, tmp)
		default:
			q.Carry(child)
			path[rel.Target.Name()] = true
			sub := s.project(q, rel.Target, child, optional, path)
			delete(path, rel.Target.Name())
			if rel.List {
				tmp := q.TmpAlias()
				q.Uncarry(sub)
				q.Append(fmt.Sprintf("WITH %s, collect(DISTINCT %s) AS %s", q.CarryList(), sub, tmp))
				q.Carry(tmp)
				entries = append(entries, fmt.Sprintf("%s: %s", rel.Field, tmp))
				consumed = append(consumed, tmp)
			} else {
				entries = append(entries, fmt.Sprintf("%s: %s", rel.Field, sub))
				consumed = append(consumed, sub)
			}
		}
	}

	tmp := q.TmpAlias()
	expr := "{" + strings.Join(entries, ", ") + "}"
	if guarded {
		expr = fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL ELSE %s END", alias, expr)
	}
	q.Uncarry(consumed...)
	stage := "WITH "
	if list := q.CarryList(); list != "" {
		stage += list + ", "
	}
	q.Append(stage + expr + " AS " + tmp)
	q.Carry(tmp)
	return tmp
}
