// Package simplepattern provides a reusable library for building and rendering
// patterns: named trees of properties populated with schema-less values.
//
// It exposes a single Service interface that stores patterns through a pluggable
// Repository, assembles them into property trees, renders those trees into
// plain ordered records and exports the rendered output to pluggable blob
// stores. Implementations of repositories (memory, Postgres) and blob stores
// (memory, S3) are provided under subpackages.
//
// # Rendering
//
// A stored pattern is materialised as a property created by type name through a
// property.Factory. Its values are applied with SetByAssoc and every attached
// child pattern is built recursively and set under its slot name, so rendering
// the root walks the whole tree through the property.Renderer contract.
package simplepattern
