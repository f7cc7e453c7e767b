// Package pkg provides the core libraries for linkscope graph exploration.
//
// # Overview
//
// Linkscope incrementally builds a node/edge graph from a relationship
// service, lays it out, lets an analyst lock nodes in place and saves named
// views with their exact positions. The pkg directory is organized into
// four main areas:
//
//  1. Graph model: [graph], [overlay]
//  2. Engine: [layout], [selection], [expansion], [views], [explorer]
//  3. I/O: [backend], [relations], [render]
//  4. Infrastructure: [cache], [httputil], [errors], [observability], [buildinfo]
//
// # Architecture
//
// The flow of one user action through the engine:
//
//	select node ([selection])
//	         ↓
//	fetch neighbors ([expansion] over [backend] or [relations])
//	         ↓
//	merge triples ([graph].Store.Merge)
//	         ↓
//	compute positions, locked nodes fixed ([layout])
//	         ↓
//	filter / stats ([overlay]), export ([render])
//
// [views] snapshots the store plus positions into a repository and rebuilds
// the store from a saved record with every node locked. [explorer] wires
// all of the above into one Workspace.
//
// # Quick Start
//
//	ds, _ := relations.LoadFile("relations.json")
//	ws, _ := explorer.New(explorer.Options{
//	    Source: ds,
//	    Views:  views.NewMemoryRepository(),
//	})
//
//	ws.Seed(ctx, "P:alice")
//	ws.Selection().Tap("P:bob")
//	_, _ = ws.ExpandSelected(ctx)
//	id, _ := ws.SaveView(ctx, "alice and friends")
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/graph
// [overlay]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/overlay
// [layout]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/layout
// [selection]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/selection
// [expansion]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/expansion
// [views]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/views
// [explorer]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/explorer
// [backend]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/backend
// [relations]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/relations
// [render]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/linkscope/pkg/buildinfo
package pkg
