package ogm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/schema"
)

func TestSaveGeneratesIdentity(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	p := New(person)
	id, err := store.Save(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if id != personID {
		t.Errorf("id = %v, want %v", id, personID)
	}
	if p.ID() != personID {
		t.Errorf("identity not written back, got %v", p.ID())
	}

	stmt := f.statements[0]
	if !strings.HasPrefix(stmt, "WITH [x IN range(1, 1) | randomUUID()] AS uuids") {
		t.Errorf("missing identifier directive:\n%s", stmt)
	}
	if !strings.Contains(stmt, "MERGE (n0:Person:Entity:Node {uuid: uuids[0]})") {
		t.Errorf("missing root upsert:\n%s", stmt)
	}
	if !strings.Contains(stmt, "RETURN n0.uuid AS uuid") {
		t.Errorf("missing return:\n%s", stmt)
	}
}

func TestSaveAssignedIdentity(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	if _, err := store.Save(context.Background(), NewWithID(person, personID)); err != nil {
		t.Fatal(err)
	}
	stmt := f.statements[0]
	if !strings.Contains(stmt, "MERGE (n0:Person:Entity:Node {uuid: $p0})") {
		t.Errorf("missing parameterized upsert:\n%s", stmt)
	}
	if strings.Contains(stmt, "randomUUID") {
		t.Errorf("directive emitted for an assigned identity:\n%s", stmt)
	}
	if f.params[0]["p0"] != personID {
		t.Errorf("params = %v", f.params[0])
	}
}

func TestSaveRejectsMalformedIdentity(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{}
	store := NewStore(f, reg)

	_, err := store.Save(context.Background(), NewWithID(person, "not-a-uuid"))
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation failure", err)
	}
	if len(f.statements) != 0 {
		t.Error("statement reached the boundary despite rejected input")
	}
}

func TestSaveReplacesListRelation(t *testing.T) {
	reg, person, animal := petSchema()
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	p := New(person).Set("pets", New(animal), New(animal))
	if _, err := store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	stmt := f.statements[0]
	for _, want := range []string{
		"WITH [x IN range(1, 3) | randomUUID()] AS uuids",
		"OPTIONAL MATCH (n0)-[r0:HAS]->(:Animal)",
		"DELETE r0",
		"WITH DISTINCT uuids, n0",
		"MERGE (n1:Animal:Entity:Node {uuid: uuids[1]})",
		"MERGE (n0)-[:HAS]->(n1)",
		"MERGE (n2:Animal:Entity:Node {uuid: uuids[2]})",
		"MERGE (n0)-[:HAS]->(n2)",
	} {
		if !strings.Contains(stmt, want) {
			t.Errorf("missing %q:\n%s", want, stmt)
		}
	}
	if strings.Index(stmt, "DELETE r0") > strings.Index(stmt, "MERGE (n0)-[:HAS]->(n1)") {
		t.Errorf("erase pass must precede the edge upserts:\n%s", stmt)
	}
}

func TestSaveDeferredEmitsMatchOnly(t *testing.T) {
	reg, person, animal := petSchema()
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	p := NewWithID(person, personID).Set("pets", Defer(animal, petID))
	if _, err := store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	stmt := f.statements[0]
	if !strings.Contains(stmt, "MATCH (n1:Animal:Entity:Node {uuid: $p1})") {
		t.Errorf("missing identity match:\n%s", stmt)
	}
	if !strings.Contains(stmt, "MERGE (n0)-[:HAS]->(n1)") {
		t.Errorf("missing edge upsert:\n%s", stmt)
	}
	if strings.Contains(stmt, "MERGE (n1:") {
		t.Errorf("referenced node must not be upserted:\n%s", stmt)
	}
	if f.params[0]["p1"] != petID {
		t.Errorf("params = %v", f.params[0])
	}
}

func TestSaveCoercesScalarToProperty(t *testing.T) {
	reg := schema.NewRegistry()
	name := reg.Property("Name")
	person := reg.Entity("Person")
	person.Relate(schema.Relationship{Field: "name", Target: name})
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	p := NewWithID(person, personID).Set("name", "Ada")
	if _, err := store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	stmt := f.statements[0]
	if !strings.Contains(stmt, "MERGE (n1:Name:Property:Node {value: $p1})") {
		t.Errorf("missing property upsert:\n%s", stmt)
	}
	if !strings.Contains(stmt, "MERGE (n0)-[:HAS]->(n1)") {
		t.Errorf("missing edge upsert:\n%s", stmt)
	}
	if f.params[0]["p1"] != "Ada" {
		t.Errorf("params = %v", f.params[0])
	}
}

func TestSaveRestrictedPropertyRejected(t *testing.T) {
	reg := schema.NewRegistry()
	color := reg.Property("Color").Restrict("red", "green")
	person := reg.Entity("Person")
	person.Relate(schema.Relationship{Field: "color", Target: color})
	f := &fakeRunner{}
	store := NewStore(f, reg)

	p := NewWithID(person, personID).Set("color", "mauve")
	_, err := store.Save(context.Background(), p)
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation failure", err)
	}
	if len(f.statements) != 0 {
		t.Error("statement reached the boundary despite rejected input")
	}
}

func TestSaveScalarForEntityTargetFails(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{}
	store := NewStore(f, reg)

	p := NewWithID(person, personID).Set("pets", "just-a-string")
	_, err := store.Save(context.Background(), p)
	if err == nil || !strings.Contains(err.Error(), "scalar") {
		t.Fatalf("err = %v, want scalar rejection", err)
	}
}

func TestSaveRepeatedReferenceKeepsOneUpsert(t *testing.T) {
	reg := schema.NewRegistry()
	animal := reg.Entity("Animal")
	person := reg.Entity("Person")
	person.Relate(
		schema.Relationship{Field: "pets", Target: animal, List: true},
		schema.Relationship{Field: "favorite", Target: animal, Label: "LIKES"},
	)
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	pet := New(animal)
	p := NewWithID(person, personID).Set("pets", pet).Set("favorite", pet)
	if _, err := store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	stmt := f.statements[0]
	if got := strings.Count(stmt, "MERGE (n1:Animal"); got != 1 {
		t.Errorf("repeated reference upserted %d times:\n%s", got, stmt)
	}
	if !strings.Contains(stmt, "MERGE (n0)-[:HAS]->(n1)") || !strings.Contains(stmt, "MERGE (n0)-[:LIKES]->(n1)") {
		t.Errorf("both edges must point at the shared alias:\n%s", stmt)
	}
}

func TestSaveCyclicGraphTerminates(t *testing.T) {
	reg := schema.NewRegistry()
	person := reg.Entity("Person")
	person.Relate(schema.Relationship{Field: "friend", Target: person, Label: "KNOWS"})
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	a := NewWithID(person, personID)
	b := NewWithID(person, otherID)
	a.Set("friend", b)
	b.Set("friend", a)

	if _, err := store.Save(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	stmt := f.statements[0]
	if got := strings.Count(stmt, "MERGE (n0:Person"); got != 1 {
		t.Errorf("root upserted %d times:\n%s", got, stmt)
	}
	if !strings.Contains(stmt, "MERGE (n0)-[:KNOWS]->(n1)") || !strings.Contains(stmt, "MERGE (n1)-[:KNOWS]->(n0)") {
		t.Errorf("both edges of the cycle must be present:\n%s", stmt)
	}
}

func TestSaveEmptyRelationStillErases(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{records: oneRecord("uuid", personID)}
	store := NewStore(f, reg)

	if _, err := store.Save(context.Background(), NewWithID(person, personID)); err != nil {
		t.Fatal(err)
	}
	stmt := f.statements[0]
	if !strings.Contains(stmt, "OPTIONAL MATCH (n0)-[r0:HAS]->(:Animal)") || !strings.Contains(stmt, "DELETE r0") {
		t.Errorf("erase pass missing for empty field:\n%s", stmt)
	}
	if strings.Contains(stmt, "MERGE (n0)-") {
		t.Errorf("no edges should be created:\n%s", stmt)
	}
}

func TestSaveTransportFailure(t *testing.T) {
	reg, person, _ := petSchema()
	f := &fakeRunner{err: context.DeadlineExceeded}
	store := NewStore(f, reg)

	_, err := store.Save(context.Background(), NewWithID(person, personID))
	if !IsTransport(err) {
		t.Fatalf("err = %v, want transport failure", err)
	}
	var terr *cypher.TransportError
	if !errors.As(err, &terr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("cause not preserved through the wrap")
	}
}
