package ogm

import (
	"context"
	"strings"
	"testing"
)

func TestDeleteStatement(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{records: oneRecord("deleted", int64(3))}
	store := NewStore(f, reg)

	n, err := store.Delete(context.Background(), person, personID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}

	want := strings.Join([]string{
		"MATCH (n0:Person:Entity:Node {uuid: $p0})",
		"OPTIONAL MATCH (n0)--(n1)",
		"WITH n0, collect(DISTINCT n1) AS t0",
		"DETACH DELETE n0",
		"WITH [x IN t0 WHERE NOT (x)--()] AS t1",
		"FOREACH (x IN t1 | DELETE x)",
		"RETURN 1 + size(t1) AS deleted",
	}, "\n")
	if f.statements[0] != want {
		t.Errorf("statement:\n%s\nwant:\n%s", f.statements[0], want)
	}
	if f.params[0]["p0"] != personID {
		t.Errorf("params = %v", f.params[0])
	}
}

func TestDeleteMissingRootReturnsZero(t *testing.T) {
	reg, person, _ := petSchema()
	store := NewStore(&fakeRunner{}, reg)

	n, err := store.Delete(context.Background(), person, personID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
}

func TestDeleteRequiresIdentity(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{}
	store := NewStore(f, reg)

	if _, err := store.Delete(context.Background(), person, nil); err == nil {
		t.Fatal("expected error")
	}
	if len(f.statements) != 0 {
		t.Error("statement reached the boundary")
	}
}

func TestDeleteCountOverJSONTransport(t *testing.T) {
	// the HTTP endpoint widens integers to float64
	reg, person, _ := petSchema()
	f := &fakeRunner{records: oneRecord("deleted", float64(2))}
	store := NewStore(f, reg)

	n, err := store.Delete(context.Background(), person, personID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}
