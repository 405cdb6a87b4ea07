// Package types provides ready-made vertices and edges for package optimizer:
// Euclidean vectors with prior, difference and three-way sum constraints, and
// planar SLAM elements (SE2 poses, XY landmarks, odometry, pose priors and
// landmark observations in the pose frame).
//
// Edges embed optimizer.BaseEdge, so information matrices, robust kernels
// and levels are set on the edge itself. Analytic Jacobians are provided
// where they are short; the others fall back to numeric differentiation.
//
// Registry maps textual tags ("VERTEX_SE2", "EDGE_SE2", ...) to factories
// for applications that build graphs from their own data sources.
package types
