// Package services implements the driving port interfaces.
// Services contain the ranking pipeline's business logic and orchestrate
// calls to driven ports (adapters): position weighting, salience scoring,
// pre-filtering, diversity selection, hybrid fusion and budget control.
//
// All ranking, scoring and fusion maths in this package is pure CPU
// computation; only the embedding port may block on I/O.
package services
