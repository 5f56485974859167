// graphtest exercises a save/load/delete round trip against a live Neo4j
// using config from env (and .env if present).
// Run from project root: go run ./cmd/graphtest
// Over the HTTP endpoint: go run ./cmd/graphtest -transport=http
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/maraichr/loom/internal/config"
	"github.com/maraichr/loom/pkg/bolt"
	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/httpapi"
	"github.com/maraichr/loom/pkg/ogm"
	"github.com/maraichr/loom/pkg/schema"
)

func main() {
	transport := flag.String("transport", "bolt", "boundary implementation: bolt or http")
	keep := flag.Bool("keep", false, "skip the delete step and leave the sample graph in place")
	flag.Parse()

	_ = godotenv.Load(".env") // ignore error if .env missing

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx := context.Background()
	runner, cleanup, err := newRunner(ctx, cfg, *transport)
	if err != nil {
		log.Fatalf("%s boundary: %v", *transport, err)
	}
	defer cleanup()

	reg := schema.NewRegistry()
	name := reg.Property("Name")
	animal := reg.Entity("Animal")
	animal.Relate(schema.Relationship{Field: "name", Target: name, Optional: true})
	dog := reg.Subtype("Dog", animal)
	person := reg.Entity("Person")
	person.Relate(
		schema.Relationship{Field: "name", Target: name, Optional: true},
		schema.Relationship{Field: "pets", Target: animal, List: true},
	)

	store := ogm.NewStore(runner, reg, ogm.WithLogger(logger))
	if err := store.EnsureConstraints(ctx); err != nil {
		log.Fatalf("constraints: %v", err)
	}

	petA := ogm.New(dog).Set("name", "Rex")
	petB := ogm.New(animal).Set("name", "Misha")
	root := ogm.New(person).Set("name", "Ada").Set("pets", petA, petB)

	id, err := store.Save(ctx, root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "save error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("saved Person %v\n", id)

	loaded, err := store.Get(ctx, person, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load error: %v\n", err)
		os.Exit(1)
	}
	pets := loaded.Get("pets")
	fmt.Printf("loaded Person %v: %d pet reference(s)\n", loaded.ID(), len(pets))
	var resolvedPets []*ogm.Node
	for _, v := range pets {
		d := v.Deferred()
		if d == nil {
			fmt.Fprintf(os.Stderr, "load error: pet value is not a deferred reference: %v\n", v.Any())
			os.Exit(1)
		}
		fmt.Printf("  deferred: %v\n", d.Serialize())
		resolved, err := store.Resolve(ctx, d)
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve error: %v\n", err)
			os.Exit(1)
		}
		for _, pet := range resolved {
			fmt.Printf("  resolved: %s %v\n", pet.Type().Name(), pet.ID())
		}
		resolvedPets = append(resolvedPets, resolved...)
	}

	if *keep {
		fmt.Println("keeping sample graph")
		return
	}

	deleted, err := store.Delete(ctx, person, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delete error: %v\n", err)
		os.Exit(1)
	}
	// pets keep their name edges, so pruning the person leaves them; remove
	// them individually
	for _, pet := range resolvedPets {
		n, err := store.Delete(ctx, pet.Type(), pet.ID())
		if err != nil {
			fmt.Fprintf(os.Stderr, "delete pet error: %v\n", err)
			os.Exit(1)
		}
		deleted += n
	}
	fmt.Printf("deleted %d node(s)\n", deleted)

	if _, err := store.Get(ctx, person, id); ogm.IsNotFound(err) {
		fmt.Println("verified: person no longer loads")
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "verify error: %v\n", err)
		os.Exit(1)
	} else {
		fmt.Fprintln(os.Stderr, "verify error: person still present after delete")
		os.Exit(1)
	}
}

func newRunner(ctx context.Context, cfg *config.Config, transport string) (cypher.Runner, func(), error) {
	switch transport {
	case "bolt":
		client, err := bolt.NewClient(cfg.Neo4j)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Verify(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, nil, fmt.Errorf("verify connectivity: %w", err)
		}
		return client, func() { _ = client.Close(ctx) }, nil
	case "http":
		client := httpapi.NewClient(cfg.HTTP.URL, cfg.Neo4j.Database, cfg.Neo4j.User, cfg.Neo4j.Password)
		client.SetTimeout(cfg.HTTP.Timeout)
		return client, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
