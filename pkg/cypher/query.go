// Package cypher holds the per-call statement builder and the seam to the
// graph database. A Query accumulates one composite Cypher statement with
// its deduplicated arguments and the carry context that keeps variables
// visible across staged projections, and is executed exactly once.
package cypher

import (
	"context"
	"fmt"
	"strings"
)

// IDBatchVar is the statement variable holding the batched identifier list.
// Every fresh-identifier request within one Query claims the next slot of
// this list; the list itself is produced by a single directive prefixed at
// execution time.
const IDBatchVar = "uuids"

// Query is single-use build state for one composite statement. It is
// created per Save/Load/Delete call, mutated only by that call's
// recursion, executed once, and discarded. Not safe for concurrent use.
type Query struct {
	clauses []string
	args    map[string]any
	byValue map[any]string // literal value -> parameter name
	argSeq  int
	nodeSeq int
	relSeq  int
	tmpSeq  int
	idSeq   int
	carry   []string
	carried map[string]bool
}

func NewQuery() *Query {
	return &Query{
		args:    make(map[string]any),
		byValue: make(map[any]string),
		carried: make(map[string]bool),
	}
}

// NodeAlias allocates the next node alias.
func (q *Query) NodeAlias() string {
	a := fmt.Sprintf("n%d", q.nodeSeq)
	q.nodeSeq++
	return a
}

// PeekNodeAlias returns the alias the next NodeAlias call will allocate,
// without consuming it.
func (q *Query) PeekNodeAlias() string {
	return fmt.Sprintf("n%d", q.nodeSeq)
}

// RelAlias allocates the next relationship alias.
func (q *Query) RelAlias() string {
	a := fmt.Sprintf("r%d", q.relSeq)
	q.relSeq++
	return a
}

// TmpAlias allocates the next temporary alias, used for folded projection
// maps and other intermediates.
func (q *Query) TmpAlias() string {
	a := fmt.Sprintf("t%d", q.tmpSeq)
	q.tmpSeq++
	return a
}

// NewID claims the next slot of the batched identifier list and returns
// the expression addressing it. The batch variable joins the carry context
// so later projection stages keep it visible.
func (q *Query) NewID() string {
	expr := fmt.Sprintf("%s[%d]", IDBatchVar, q.idSeq)
	q.idSeq++
	q.Carry(IDBatchVar)
	return expr
}

// IDCount reports how many identifier slots have been claimed.
func (q *Query) IDCount() int { return q.idSeq }

// Arg binds a literal value and returns its parameter name. Binding an
// equal value of a comparable type again returns the same name; values of
// non-comparable dynamic types always get a fresh one.
func (q *Query) Arg(v any) string {
	if hashable(v) {
		if name, ok := q.byValue[v]; ok {
			return name
		}
	}
	name := fmt.Sprintf("p%d", q.argSeq)
	q.argSeq++
	q.args[name] = v
	if hashable(v) {
		q.byValue[v] = name
	}
	return name
}

// Args returns the bound argument map. The map is live build state; treat
// it as read-only.
func (q *Query) Args() map[string]any { return q.args }

func hashable(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Pattern renders a node pattern for alias with an optional label chain and
// an optional identifying-property filter. expr is Cypher source (a
// parameter reference or an identifier-slot expression), not a value.
func (q *Query) Pattern(alias string, labels []string, key, expr string) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(alias)
	for _, l := range labels {
		b.WriteByte(':')
		b.WriteString(l)
	}
	if key != "" && expr != "" {
		fmt.Fprintf(&b, " {%s: %s}", key, expr)
	}
	b.WriteByte(')')
	return b.String()
}

// Carry adds variables to the carry context. Entries already present keep
// their position; order is first-introduction order.
func (q *Query) Carry(vars ...string) {
	for _, v := range vars {
		if !q.carried[v] {
			q.carried[v] = true
			q.carry = append(q.carry, v)
		}
	}
}

// Uncarry drops consumed variables from the carry context so later
// aggregation stages group only on what is still required downstream.
func (q *Query) Uncarry(vars ...string) {
	for _, v := range vars {
		if !q.carried[v] {
			continue
		}
		delete(q.carried, v)
		for i, have := range q.carry {
			if have == v {
				q.carry = append(q.carry[:i], q.carry[i+1:]...)
				break
			}
		}
	}
}

// Carried reports whether v is currently part of the carry context.
func (q *Query) Carried(v string) bool { return q.carried[v] }

// CarryList renders the carry context for a WITH clause.
func (q *Query) CarryList() string { return strings.Join(q.carry, ", ") }

// With emits a projection stage re-asserting every carried variable. A
// no-op while nothing is carried.
func (q *Query) With() {
	if len(q.carry) == 0 {
		return
	}
	q.Append("WITH " + q.CarryList())
}

// Append adds one clause line to the statement.
func (q *Query) Append(clause string) {
	q.clauses = append(q.clauses, clause)
}

// Text renders the final statement, prefixing the batched identifier
// directive when identifier slots were requested (or reserved via Carry).
func (q *Query) Text() string {
	text := strings.Join(q.clauses, "\n")
	if q.idSeq > 0 || q.carried[IDBatchVar] {
		directive := fmt.Sprintf("WITH [x IN range(1, %d) | randomUUID()] AS %s", q.idSeq, IDBatchVar)
		if text == "" {
			return directive
		}
		return directive + "\n" + text
	}
	return text
}

// Execute renders the statement and runs it once through the persistence
// boundary. Boundary failures surface as *TransportError with the cause
// preserved; they are never retried here.
func (q *Query) Execute(ctx context.Context, r Runner) ([]*Record, error) {
	records, err := r.Run(ctx, q.Text(), q.args)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return records, nil
}
