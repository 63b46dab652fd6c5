package convert

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// maskThreshold excludes near-black cells from the mesh unless a solid base
// is requested, so background never becomes geometry.
const maskThreshold = 1.0

// Vec3 is one mesh vertex or facet normal.
type Vec3 [3]float32

// Triangle is one STL facet.
type Triangle struct {
	Normal  Vec3
	A, B, C Vec3
}

// MeshFromHeightmap extrudes a grayscale intensity matrix into a triangle
// mesh. Cell intensity times Options.Scale becomes the z height. Without a
// base, quads whose four corners all fall under the mask threshold are
// skipped; with a base, every quad is kept and a bottom plate plus perimeter
// walls make the solid watertight.
func MeshFromHeightmap(heights [][]float64, opts Options) []Triangle {
	rows := len(heights)
	if rows < 2 {
		return nil
	}
	cols := len(heights[0])
	if cols < 2 {
		return nil
	}

	z := func(x, y int) float32 {
		return float32(heights[y][x] * opts.Scale)
	}

	var mesh []Triangle
	for y := 0; y < rows-1; y++ {
		for x := 0; x < cols-1; x++ {
			if !opts.Base &&
				heights[y][x] < maskThreshold &&
				heights[y][x+1] < maskThreshold &&
				heights[y+1][x] < maskThreshold &&
				heights[y+1][x+1] < maskThreshold {
				continue
			}
			v00 := Vec3{float32(x), float32(y), z(x, y)}
			v10 := Vec3{float32(x + 1), float32(y), z(x+1, y)}
			v01 := Vec3{float32(x), float32(y + 1), z(x, y+1)}
			v11 := Vec3{float32(x + 1), float32(y + 1), z(x+1, y+1)}
			mesh = append(mesh, newTriangle(v00, v01, v10), newTriangle(v10, v01, v11))
		}
	}

	if opts.Base {
		mesh = append(mesh, basePlate(rows, cols)...)
		mesh = append(mesh, perimeterWalls(heights, opts)...)
	}
	return mesh
}

// basePlate closes the bottom of a solid mesh with two downward facets.
func basePlate(rows, cols int) []Triangle {
	w := float32(cols - 1)
	h := float32(rows - 1)
	o := Vec3{0, 0, 0}
	px := Vec3{w, 0, 0}
	py := Vec3{0, h, 0}
	pxy := Vec3{w, h, 0}
	return []Triangle{
		newTriangle(o, px, py),
		newTriangle(px, pxy, py),
	}
}

// perimeterWalls connects the outer edge of the top surface down to z=0.
func perimeterWalls(heights [][]float64, opts Options) []Triangle {
	rows := len(heights)
	cols := len(heights[0])
	z := func(x, y int) float32 {
		return float32(heights[y][x] * opts.Scale)
	}

	var walls []Triangle
	quad := func(a, b Vec3) {
		ag := Vec3{a[0], a[1], 0}
		bg := Vec3{b[0], b[1], 0}
		walls = append(walls, newTriangle(a, b, ag), newTriangle(b, bg, ag))
	}

	for x := 0; x < cols-1; x++ {
		quad(Vec3{float32(x), 0, z(x, 0)}, Vec3{float32(x + 1), 0, z(x+1, 0)})
		quad(Vec3{float32(x + 1), float32(rows - 1), z(x+1, rows-1)}, Vec3{float32(x), float32(rows - 1), z(x, rows-1)})
	}
	for y := 0; y < rows-1; y++ {
		quad(Vec3{0, float32(y + 1), z(0, y+1)}, Vec3{0, float32(y), z(0, y)})
		quad(Vec3{float32(cols - 1), float32(y), z(cols-1, y)}, Vec3{float32(cols - 1), float32(y + 1), z(cols-1, y+1)})
	}
	return walls
}

func newTriangle(a, b, c Vec3) Triangle {
	return Triangle{Normal: facetNormal(a, b, c), A: a, B: b, C: c}
}

func facetNormal(a, b, c Vec3) Vec3 {
	ux := b[0] - a[0]
	uy := b[1] - a[1]
	uz := b[2] - a[2]
	vx := c[0] - a[0]
	vy := c[1] - a[1]
	vz := c[2] - a[2]

	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx

	length := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
	if length == 0 {
		return Vec3{}
	}
	return Vec3{nx / length, ny / length, nz / length}
}

// stlFacet is the 50-byte wire layout of one binary STL facet.
type stlFacet struct {
	Normal  [3]float32
	A       [3]float32
	B       [3]float32
	C       [3]float32
	AttrLen uint16
}

// WriteSTL writes the mesh in binary STL format: an 80-byte header, the
// facet count, then 50 bytes per facet, all little-endian.
func WriteSTL(w io.Writer, name string, mesh []Triangle) error {
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("convert: write stl header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(mesh))); err != nil {
		return fmt.Errorf("convert: write stl facet count: %w", err)
	}
	for _, t := range mesh {
		facet := stlFacet{Normal: t.Normal, A: t.A, B: t.B, C: t.C}
		if err := binary.Write(bw, binary.LittleEndian, facet); err != nil {
			return fmt.Errorf("convert: write stl facet: %w", err)
		}
	}
	return bw.Flush()
}

// WriteSTLFile writes the mesh to path, truncating any existing file.
func WriteSTLFile(path string, mesh []Triangle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("convert: create stl file: %w", err)
	}
	if err := WriteSTL(f, "reliefd", mesh); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("convert: close stl file: %w", err)
	}
	return nil
}
