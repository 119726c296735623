package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ReadMesh loads a mesh from path, choosing the reader by file extension: PLY for
// ".ply" and Wavefront OBJ for ".obj".
func ReadMesh(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ply":
		return ReadPLYFile(path)
	case ".obj":
		return ReadOBJFile(path)
	default:
		return nil, errors.Errorf("unsupported mesh format %q for %q", ext, path)
	}
}

// ReadOBJFile reads a Wavefront OBJ file.
func ReadOBJFile(path string) (_ *Mesh, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	m, err := ReadOBJ(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mesh %q", path)
	}
	return m, nil
}

// ReadOBJ parses vertex ("v") and face ("f") statements of a Wavefront OBJ stream.
// Texture and normal references in faces are ignored; negative indices are relative
// to the end of the vertex list as the format defines. All other statements are skipped.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	var vertices []r3.Vector
	var faces [][]int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, errors.Errorf("line %d: vertex needs 3 coordinates", lineNum)
			}
			var coords [3]float64
			for i := range coords {
				c, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineNum)
				}
				coords[i] = c
			}
			vertices = append(vertices, r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
		case "f":
			face := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := strconv.Atoi(strings.SplitN(ref, "/", 2)[0])
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineNum)
				}
				switch {
				case idx > 0:
					idx--
				case idx < 0:
					idx += len(vertices)
				default:
					return nil, errors.Errorf("line %d: vertex index 0 is invalid", lineNum)
				}
				face = append(face, idx)
			}
			faces = append(faces, face)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewMesh(vertices, faces), nil
}

// WriteOBJ writes the vertices and faces of m as a Wavefront OBJ stream.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.vertices {
		if _, err := fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z)); err != nil {
			return err
		}
	}
	for _, face := range m.faces {
		refs := make([]string, len(face))
		for i, idx := range face {
			refs[i] = strconv.Itoa(idx + 1)
		}
		if _, err := fmt.Fprintf(bw, "f %s\n", strings.Join(refs, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
