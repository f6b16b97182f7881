// Package geom holds the vector, rigid-transform, rotation and plane-fit
// math shared by the gesture detector and the marker store.
//
// Points are gonum r3 vectors in metres. Transforms use the same 4x4
// row-major layout as sensor poses elsewhere in the repository.
package geom
