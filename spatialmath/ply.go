package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ReadPLYFile reads a Stanford PLY file, as written by Poisson surface reconstruction.
func ReadPLYFile(path string) (_ *Mesh, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	m, err := ReadPLY(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mesh %q", path)
	}
	return m, nil
}

// ReadPLY parses the "vertex" and "face" elements of a PLY stream. Vertices need x, y and z
// properties and faces a "vertex_indices" (or "vertex_index") list. Other elements and
// properties are ignored.
func ReadPLY(r io.Reader) (m *Mesh, err error) {
	// the parser panics on malformed headers and bodies
	defer func() {
		if thePanic := recover(); thePanic != nil {
			m = nil
			err = errors.Errorf("malformed PLY data: %v", thePanic)
		}
	}()
	ply := goply.New(r)

	plyVertices := ply.Elements("vertex")
	vertices := make([]r3.Vector, 0, len(plyVertices))
	for i, v := range plyVertices {
		var coords [3]float64
		for axis, name := range []string{"x", "y", "z"} {
			c, ok := plyNumber(v[name])
			if !ok {
				return nil, errors.Errorf("vertex %d has no numeric %q property", i, name)
			}
			coords[axis] = c
		}
		vertices = append(vertices, r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
	}

	plyFaces := ply.Elements("face")
	faces := make([][]int, 0, len(plyFaces))
	for i, f := range plyFaces {
		indices, ok := f["vertex_indices"]
		if !ok {
			indices, ok = f["vertex_index"]
		}
		if !ok {
			return nil, errors.Errorf("face %d has no vertex index list", i)
		}
		face, ok := plyIndexList(indices)
		if !ok {
			return nil, errors.Errorf("face %d has a vertex index list of type %T", i, indices)
		}
		faces = append(faces, face)
	}
	return NewMesh(vertices, faces), nil
}

func plyNumber(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

func plyIndexList(v interface{}) ([]int, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	face := make([]int, rv.Len())
	for i := range face {
		n, ok := plyNumber(rv.Index(i).Interface())
		if !ok || n < 0 || n != float64(int(n)) {
			return nil, false
		}
		face[i] = int(n)
	}
	return face, true
}

// WritePLY writes the vertices and faces of m as an ASCII PLY stream with double precision
// coordinates.
func WritePLY(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	header := []string{
		"ply",
		"format ascii 1.0",
		fmt.Sprintf("element vertex %d", len(m.vertices)),
		"property double x",
		"property double y",
		"property double z",
		fmt.Sprintf("element face %d", len(m.faces)),
		"property list uchar int vertex_indices",
		"end_header",
	}
	if _, err := bw.WriteString(strings.Join(header, "\n") + "\n"); err != nil {
		return err
	}
	for _, v := range m.vertices {
		if _, err := fmt.Fprintf(bw, "%s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z)); err != nil {
			return err
		}
	}
	for _, face := range m.faces {
		refs := make([]string, 0, len(face)+1)
		refs = append(refs, strconv.Itoa(len(face)))
		for _, idx := range face {
			refs = append(refs, strconv.Itoa(idx))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(refs, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}
