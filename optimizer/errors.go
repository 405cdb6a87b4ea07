package optimizer

import "errors"

// Sentinel errors. Structural errors are returned at mutation time; numerical
// failures inside a step are absorbed by the algorithms as rejected steps and
// surface only through Result.State.
var (
	// ErrArityMismatch indicates an edge attached to a vertex count its Arity rejects.
	ErrArityMismatch = errors.New("optimizer: edge arity mismatch")

	// ErrInformationSize indicates a nil information matrix or one whose size
	// differs from the edge's error dimension.
	ErrInformationSize = errors.New("optimizer: information matrix size mismatch")

	// ErrBadDimension indicates a vertex with a negative tangent or estimate dimension.
	ErrBadDimension = errors.New("optimizer: bad vertex dimension")

	// ErrEmptyStack indicates Pop or DiscardTop on a vertex with no backup.
	ErrEmptyStack = errors.New("optimizer: backup stack is empty")

	// ErrNotInitialized indicates Optimize or a query that needs an active set
	// before InitializeOptimization, or after the topology changed.
	ErrNotInitialized = errors.New("optimizer: optimization not initialized")

	// ErrLandmarkCoupling indicates an edge joining two marginalized vertices
	// while the Schur complement is enabled.
	ErrLandmarkCoupling = errors.New("optimizer: edge couples two marginalized vertices")

	// ErrUnknownAlgorithm indicates a registry lookup for an unregistered name.
	ErrUnknownAlgorithm = errors.New("optimizer: unknown algorithm")

	// ErrUnknownSolver indicates a configuration naming an unknown linear solver.
	ErrUnknownSolver = errors.New("optimizer: unknown linear solver")

	// ErrNoMarginals indicates a linear solver that cannot recover covariances.
	ErrNoMarginals = errors.New("optimizer: linear solver does not provide marginals")

	// ErrBadConfig indicates an invalid tuning file or option value.
	ErrBadConfig = errors.New("optimizer: invalid configuration")
)
