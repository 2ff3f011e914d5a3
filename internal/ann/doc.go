// Package ann builds approximate nearest-neighbour indexes over an embedding
// table.
//
// The default backend is a forest of random-hyperplane trees. Each tree
// recursively splits the vectors by the hyperplane bisecting two sampled
// points; a query walks all trees at once through a priority queue ordered by
// the smallest margin seen on the way down, gathers candidates until SearchK
// of them are collected, and re-ranks them exactly. Recall is probabilistic:
// the true nearest neighbour may be missed if it falls on the far side of
// enough hyperplanes. More trees or a larger SearchK raise recall.
//
// Builds are reproducible for a given Seed.
package ann
