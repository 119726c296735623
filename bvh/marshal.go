package bvh

import (
	"github.com/pkg/errors"

	"go.viam.com/viewpoint/artifact"
)

var bvhFormat = artifact.NewFormat("VBVH", 1)

// MarshalBinary encodes the hierarchy including its node structure, so that loading it
// does not rebuild anything.
func (b *BVH) MarshalBinary() ([]byte, error) {
	enc := artifact.NewEncoder(8 + 64*len(b.nodes) + 68*len(b.objects))
	enc.Uint32(uint32(len(b.nodes)))
	enc.Uint32(uint32(len(b.objects)))
	for _, n := range b.nodes {
		enc.Vector(n.box.Min)
		enc.Vector(n.box.Max)
		enc.Int32(n.left)
		enc.Int32(n.right)
		enc.Int32(n.first)
		enc.Int32(n.count)
	}
	for _, o := range b.objects {
		enc.Vector(o.Box.Min)
		enc.Vector(o.Box.Max)
		enc.Float64(o.Object.Occupancy)
		enc.Uint32(o.Object.ObservationCount)
		enc.Float64(o.Object.Weight)
	}
	return enc.Bytes(), nil
}

// Unmarshal decodes a hierarchy written by MarshalBinary.
func Unmarshal(data []byte) (*BVH, error) {
	dec := artifact.NewDecoder(data)
	numNodes := int(dec.Uint32())
	numObjects := int(dec.Uint32())
	if err := dec.Err(); err != nil {
		return nil, err
	}
	if numNodes == 0 || numObjects == 0 {
		return nil, ErrEmptyBVH
	}
	// every node and object takes more than 50 bytes
	if numNodes+numObjects > dec.Remaining()/50 {
		return nil, errors.Wrapf(artifact.ErrCorrupt, "%d nodes and %d objects do not fit in %d bytes",
			numNodes, numObjects, dec.Remaining())
	}

	b := &BVH{
		nodes:   make([]node, numNodes),
		objects: make([]ObjectWithBoundingBox, numObjects),
	}
	for i := range b.nodes {
		n := &b.nodes[i]
		n.box.Min = dec.Vector()
		n.box.Max = dec.Vector()
		n.left = dec.Int32()
		n.right = dec.Int32()
		n.first = dec.Int32()
		n.count = dec.Int32()
	}
	for i := range b.objects {
		o := &b.objects[i]
		o.Box.Min = dec.Vector()
		o.Box.Max = dec.Vector()
		o.Object.Occupancy = dec.Float64()
		o.Object.ObservationCount = dec.Uint32()
		o.Object.Weight = dec.Float64()
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// validate checks that node references stay in range and only point forward.
func (b *BVH) validate() error {
	for i, n := range b.nodes {
		if n.isLeaf() {
			if n.first < 0 || int(n.first)+int(n.count) > len(b.objects) {
				return errors.Wrapf(artifact.ErrCorrupt, "BVH leaf %d references objects [%d, %d) of %d",
					i, n.first, n.first+n.count, len(b.objects))
			}
			continue
		}
		if n.count < 0 || n.left <= int32(i) || n.right <= int32(i) ||
			int(n.left) >= len(b.nodes) || int(n.right) >= len(b.nodes) {
			return errors.Wrapf(artifact.ErrCorrupt, "BVH node %d has invalid children %d and %d", i, n.left, n.right)
		}
	}
	return nil
}

// WriteFile atomically writes the hierarchy to path.
func (b *BVH) WriteFile(path string) error {
	payload, err := b.MarshalBinary()
	if err != nil {
		return err
	}
	return bvhFormat.WriteFile(path, payload)
}

// ReadFile loads a hierarchy written by WriteFile.
func ReadFile(path string) (*BVH, error) {
	payload, err := bvhFormat.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Unmarshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding BVH %q", path)
	}
	return b, nil
}
