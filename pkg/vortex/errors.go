package vortex

import "errors"

var (
	// ErrDegenerateEdge is returned by Setup when the two endpoints coincide.
	ErrDegenerateEdge = errors.New("vortex edge endpoints coincide")

	// ErrNilNode is returned by Setup when an endpoint node is missing.
	ErrNilNode = errors.New("vortex edge node is nil")

	// ErrNotSetup is the panic value raised when geometry, kernel or force
	// operations run on an edge whose geometry was never set up.
	ErrNotSetup = errors.New("vortex edge geometry has not been set up")

	ErrInvalidSigma    = errors.New("vortex core radius must be positive and finite")
	ErrInvalidSpacing  = errors.New("local spacing must be positive and finite")
	ErrInvalidSettings = errors.New("invalid kernel settings")
)

// Flow condition errors.
var (
	ErrInvalidMach    = errors.New("mach number out of range")
	ErrSonicMach      = errors.New("mach number too close to sonic")
	ErrZeroFreeStream = errors.New("free-stream velocity must be non-zero")
	ErrInvalidDensity = errors.New("density must be positive")
)

// Forest errors.
var (
	ErrUnknownEdge       = errors.New("unknown edge id")
	ErrInvalidChildren   = errors.New("invalid child edges")
	ErrAlreadySubdivided = errors.New("edge already has children")
	ErrChildOwned        = errors.New("child edge already has a parent")
)
