// Package model implements the immutable document tree the editor operates on.
//
// A document is a tree of Nodes. Block nodes hold other nodes, textblocks hold
// inline content, and text nodes carry a run of text with a set of Marks.
// Every node type and mark type is declared by a Schema, which is assembled
// from NodeSpec and MarkSpec fragments contributed by extensions.
//
// # Positions
//
// Positions are integer offsets into the document content. Entering or
// leaving a non-text node counts as one position, each rune of text counts as
// one position, and an inline leaf node counts as one position:
//
//	doc( p("ab"), p("c") )
//	0   1 2 3   4 5 6   (positions between tokens)
//
// ResolvedPos turns a raw position into its path from the root, which most
// editing code needs to reason about the surrounding structure.
//
// # Immutability
//
// Nodes, Fragments, Marks and Slices are never mutated after creation. Every
// edit produces a new tree that shares unchanged subtrees with the old one,
// so holding a reference to an old document is always safe.
package model
