// Package template provides the template document store and the update
// coordinator.
//
// Templates are JSON documents owned by the user who created them. The
// payload is opaque: the server checks well-formedness but never inspects
// structure, so clients can evolve their document format freely.
//
// All payload writes flow through the Coordinator, which serialises
// concurrent writers per template and enforces the validation sequence:
// the template must exist, the actor must own it (admins bypass this),
// and the payload must be non-empty. Updates are full overwrites; there
// is no merge or patch semantics.
package template
