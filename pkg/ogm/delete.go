package ogm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/schema"
)

// Delete removes the node of typ identified by id, detaching all of its
// relationships, then deletes every neighbor left with no relationships
// at all. It returns the number of nodes deleted; a missing root deletes
// nothing and returns zero. Pruning is a single hop: orphan chains beyond
// the immediate neighbors stay in place.
func (s *Store) Delete(ctx context.Context, typ *schema.Type, id any) (int, error) {
	if typ == nil {
		return 0, fmt.Errorf("ogm: delete: nil type")
	}
	if id == nil {
		return 0, fmt.Errorf("ogm: delete %s: identity required", typ.Name())
	}
	bound := id
	if typ.Kind() == schema.KindProperty {
		encoded, err := typ.EncodeValue(id)
		if err != nil {
			return 0, err
		}
		bound = encoded
	}

	q := cypher.NewQuery()
	root := q.NodeAlias()
	q.Append("MATCH " + q.Pattern(root, typ.Labels(), typ.Key(), "$"+q.Arg(bound)))
	q.Carry(root)
	neighbor := q.NodeAlias()
	q.Append(fmt.Sprintf("OPTIONAL MATCH (%s)--(%s)", root, neighbor))
	kept := q.TmpAlias()
	q.Append(fmt.Sprintf("WITH %s, collect(DISTINCT %s) AS %s", q.CarryList(), neighbor, kept))
	q.Carry(kept)
	q.Append("DETACH DELETE " + root)
	q.Uncarry(root, kept)
	orphans := q.TmpAlias()
	q.Append(fmt.Sprintf("WITH [x IN %s WHERE NOT (x)--()] AS %s", kept, orphans))
	q.Append(fmt.Sprintf("FOREACH (x IN %s | DELETE x)", orphans))
	q.Append(fmt.Sprintf("RETURN 1 + size(%s) AS deleted", orphans))

	s.log.Debug("delete statement built",
		slog.String("type", typ.Name()),
		slog.String("cypher", q.Text()))

	records, err := q.Execute(ctx, s.runner)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	raw, ok := records[0].Get("deleted")
	if !ok {
		return 0, fmt.Errorf("ogm: delete %s: result missing count", typ.Name())
	}
	n, ok := asInt(raw)
	if !ok {
		return 0, fmt.Errorf("ogm: delete %s: unexpected count type %T", typ.Name(), raw)
	}
	return n, nil
}
