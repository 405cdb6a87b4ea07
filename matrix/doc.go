// SPDX-License-Identifier: MIT

// Package matrix provides the block-sparse storage used to assemble and solve
// linearized normal equations.
//
// Types:
//
//   - BlockMatrix: a fixed block grid (cumulative row/column boundaries) with a
//     sparse set of dense gonum blocks. AddBlock accumulates with `+=` and is
//     safe for concurrent writers. Symmetric matrices store the upper block
//     triangle only, diagonal blocks in full.
//   - CCS: compressed column storage. ToCCS/FillCCS convert a BlockMatrix
//     (Full or Upper triangle); FillCCS rewrites values in place when the
//     pattern is unchanged so symbolic analyses can be cached downstream.
//   - BlockDiagonal: diagonal-only blocks with a batched SPD inverse.
//   - HashMap: per-worker (r, c) → block shard merged into a BlockMatrix.
//   - Pattern: block-level symmetric adjacency for orderings.
//
// Determinism:
//
//   - ForEach and CCS emission are column-major with ascending rows.
//   - Summation order inside one block follows the order of AddBlock calls;
//     HashMap.MergeInto merges in sorted key order.
//
// Errors:
//
//	ErrBadShape, ErrOutOfRange, ErrDimensionMismatch, ErrNonSquare, ErrNotSPD, ErrBadCCS.
package matrix
