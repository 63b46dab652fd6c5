// Package convert turns a decoded request payload into a raised relief mesh.
//
// The pipeline follows the historical converter: flatten transparency to
// white, resize square, optionally trim and re-border for negative prints,
// grayscale, smooth, invert for positive prints, then extrude the heightmap
// into a binary STL file.
package convert
