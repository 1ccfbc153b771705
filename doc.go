// Package chronicle provides a temporal knowledge store for Go.
//
// Chronicle records assertions ("facts") about named real-world entities,
// each tagged with the interval during which it was true, and resolves
// ambiguous entity names into canonical identities over time. Facts move
// through a bitemporal lifecycle (supersession, synthesis, corroboration,
// invalidation), and retrieval combines full-text, vector, and heuristic
// relevance signals into one ranking.
//
// # Basic Usage
//
// Create a client over a store:
//
//	st := store.NewMemoryStore()
//	client, err := chronicle.NewClient(st, nil, nil, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Ingesting Text
//
// Raw text flows through an extraction method into resolved entities and
// deduplicated facts:
//
//	result, err := client.IngestText(ctx,
//		"Alice Chen is the CEO of Acme Corp",
//		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
//		"press-release-14")
//
// # Temporal Queries
//
// Ask what was true at any instant, or how an entity changed:
//
//	facts, err := client.FactsAt(ctx, asOf, temporal.Filter{EntityID: id})
//	diff, err := client.DiffBetween(ctx, id, from, to)
//
// # Persistent Stores
//
// Besides the in-memory store, Postgres (with pgvector and trigram search)
// and Neo4j backends implement the same store contract:
//
//	st, err := store.NewPostgresStore("postgres://localhost/chronicle", 1536)
//	st, err := store.NewNeo4jStore("bolt://localhost:7687", "neo4j", "password", "neo4j")
package chronicle
