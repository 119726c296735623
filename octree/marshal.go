package octree

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/viewpoint/artifact"
)

// ErrBinaryTreeUnsupported is returned when asked to load a binary (.bt) occupancy map,
// which carries no observation counts.
var ErrBinaryTreeUnsupported = errors.New("binary occupancy maps not supported")

var treeFormat = artifact.NewFormat("VPOT", 1)

const childMaskAll = 0xff

// MarshalBinary encodes the tree. Nodes are written in pre-order so that the output depends
// only on the shape and contents of the tree, never on the order nodes were created in.
func (t *Tree) MarshalBinary() ([]byte, error) {
	recordSize := 1 + 8 + 4
	if t.kind == Augmented {
		recordSize += 8
	}
	enc := artifact.NewEncoder(64 + recordSize*len(t.nodes))
	enc.Uint8(uint8(t.kind))
	enc.Vector(t.center)
	enc.Float64(t.side)
	enc.Uint8(uint8(t.maxDepth))
	enc.Float64(t.thresholds.Occupied)
	enc.Float64(t.thresholds.Free)
	enc.Uint32(uint32(len(t.nodes)))
	t.Walk(t.Root(), func(id NodeID) bool {
		n := t.nodes[id]
		if n.firstChild == NoNode {
			enc.Uint8(0)
		} else {
			enc.Uint8(childMaskAll)
		}
		enc.Float64(n.occupancy)
		enc.Uint32(n.observations)
		if t.kind == Augmented {
			enc.Float64(n.weight)
		}
		return true
	})
	return enc.Bytes(), nil
}

// UnmarshalTree decodes a tree written by MarshalBinary.
func UnmarshalTree(data []byte) (*Tree, error) {
	dec := artifact.NewDecoder(data)
	kind := Kind(dec.Uint8())
	center := dec.Vector()
	side := dec.Float64()
	maxDepth := int(dec.Uint8())
	thresholds := Thresholds{Occupied: dec.Float64(), Free: dec.Float64()}
	count := int(dec.Uint32())
	if err := dec.Err(); err != nil {
		return nil, err
	}
	if kind != Raw && kind != Augmented {
		return nil, errors.Errorf("unknown tree kind %d", kind)
	}
	t, err := New(center, side, maxDepth)
	if err != nil {
		return nil, err
	}
	t.kind = kind
	t.thresholds = thresholds

	// the stack holds nodes whose record is still to be read, next one on top
	stack := []NodeID{t.Root()}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		mask := dec.Uint8()
		t.nodes[id].occupancy = dec.Float64()
		t.nodes[id].observations = dec.Uint32()
		if kind == Augmented {
			t.nodes[id].weight = dec.Float64()
		}
		if err := dec.Err(); err != nil {
			return nil, err
		}
		if math.IsNaN(t.nodes[id].occupancy) || t.nodes[id].occupancy < 0 || t.nodes[id].occupancy > 1 {
			return nil, errors.Errorf("node %s has occupancy %g outside [0, 1]", t.nodes[id].key, t.nodes[id].occupancy)
		}
		switch mask {
		case 0:
		case childMaskAll:
			if len(t.nodes)+8 > count {
				return nil, errors.Wrapf(artifact.ErrCorrupt, "tree has more than the %d nodes declared", count)
			}
			if err := t.Expand(id); err != nil {
				return nil, err
			}
			first := t.nodes[id].firstChild
			for i := NodeID(7); i >= 0; i-- {
				stack = append(stack, first+i)
			}
		default:
			return nil, errors.Errorf("node %s has child mask %#x, nodes must have 0 or 8 children", t.nodes[id].key, mask)
		}
	}
	if len(t.nodes) != count {
		return nil, errors.Wrapf(artifact.ErrCorrupt, "tree has %d nodes, %d declared", len(t.nodes), count)
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteFile atomically writes the tree to path.
func (t *Tree) WriteFile(path string) error {
	payload, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	return treeFormat.WriteFile(path, payload)
}

// ReadFile loads a tree written by WriteFile.
func ReadFile(path string) (*Tree, error) {
	if strings.EqualFold(filepath.Ext(path), ".bt") {
		return nil, errors.Wrapf(ErrBinaryTreeUnsupported, "reading %q", path)
	}
	payload, err := treeFormat.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := UnmarshalTree(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding tree %q", path)
	}
	return t, nil
}
