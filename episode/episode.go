// Package episode reads and writes the persisted per-episode recordings that
// examples are built from. An episode is a single BSON document exposing
// named arrays (images, depth bounds, camera and object poses), integer
// segmentation ids, and a JSON-encoded goal specification.
package episode

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/multierr"

	"github.com/rearrange-ml/seqprep/spatialmath"
)

// Episode is one fully-read episode document. The backing file is opened,
// read, and closed inside Open; an Episode holds no file handle.
type Episode struct {
	path string
	doc  bson.Raw
}

// Open reads and validates the episode document at path. On any error,
// including a failed close, the returned episode is nil.
func Open(path string) (ep *Episode, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = multierr.Combine(err, f.Close()); err != nil {
			ep = nil
		}
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading episode %q", path)
	}
	doc := bson.Raw(data)
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "episode %q is not a valid document", path)
	}
	return &Episode{path: path, doc: doc}, nil
}

// Path returns the path the episode was read from.
func (e *Episode) Path() string {
	return e.path
}

// Has reports whether the episode contains the given key.
func (e *Episode) Has(key string) bool {
	_, err := e.doc.LookupErr(key)
	return err == nil
}

// Keys returns every key in the episode document.
func (e *Episode) Keys() ([]string, error) {
	elems, err := e.doc.Elements()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(elems))
	for _, el := range elems {
		keys = append(keys, el.Key())
	}
	return keys, nil
}

// Array returns the named array field.
func (e *Episode) Array(key string) (*Array, error) {
	v, err := e.doc.LookupErr(key)
	if err != nil {
		return nil, errors.Wrapf(err, "episode %q has no array %q", e.path, key)
	}
	sub, ok := v.DocumentOK()
	if !ok {
		return nil, errors.Errorf("episode field %q is not an array document", key)
	}
	var a Array
	if err := bson.Unmarshal(sub, &a); err != nil {
		return nil, errors.Wrapf(err, "error decoding array %q", key)
	}
	return &a, nil
}

// Int returns the named integer field, e.g. a segmentation id.
func (e *Episode) Int(key string) (int64, error) {
	v, err := e.doc.LookupErr(key)
	if err != nil {
		return 0, errors.Wrapf(err, "episode %q has no int %q", e.path, key)
	}
	n, ok := v.AsInt64OK()
	if !ok {
		return 0, errors.Errorf("episode field %q is not an int", key)
	}
	return n, nil
}

// String returns the named string field, e.g. the goal specification JSON.
func (e *Episode) String(key string) (string, error) {
	v, err := e.doc.LookupErr(key)
	if err != nil {
		return "", errors.Wrapf(err, "episode %q has no string %q", e.path, key)
	}
	s, ok := v.StringValueOK()
	if !ok {
		return "", errors.Errorf("episode field %q is not a string", key)
	}
	return s, nil
}

// Float returns element idx of a 1D float64 array field, e.g. per-frame
// depth bounds.
func (e *Episode) Float(key string, idx int) (float64, error) {
	a, err := e.Array(key)
	if err != nil {
		return 0, err
	}
	vals, err := a.Float64s()
	if err != nil {
		return 0, errors.Wrapf(err, "error decoding %q", key)
	}
	if idx < 0 || idx >= len(vals) {
		return 0, errors.Errorf("index %d out of range for %q (len %d)", idx, key, len(vals))
	}
	return vals[idx], nil
}

// Pose returns a single 4x4 pose field.
func (e *Episode) Pose(key string) (spatialmath.Pose, error) {
	a, err := e.Array(key)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	vals, err := a.Float64s()
	if err != nil {
		return spatialmath.Pose{}, errors.Wrapf(err, "error decoding pose %q", key)
	}
	return spatialmath.NewPoseFromMatrix(vals)
}

// PoseAt returns entry idx of a pose array field shaped (N, 4, 4), e.g. a
// per-keyframe object pose or a per-timestep camera view.
func (e *Episode) PoseAt(key string, idx int) (spatialmath.Pose, error) {
	a, err := e.Array(key)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	vals, err := a.Float64s()
	if err != nil {
		return spatialmath.Pose{}, errors.Wrapf(err, "error decoding poses %q", key)
	}
	if idx < 0 || (idx+1)*16 > len(vals) {
		return spatialmath.Pose{}, errors.Errorf("pose index %d out of range for %q (%d poses)",
			idx, key, len(vals)/16)
	}
	return spatialmath.NewPoseFromMatrix(vals[idx*16 : (idx+1)*16])
}

// ObjectIDs returns the object name to segmentation id mapping, read from
// every "id_"-prefixed field.
func (e *Episode) ObjectIDs() (map[string]int64, error) {
	elems, err := e.doc.Elements()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64)
	for _, el := range elems {
		key := el.Key()
		if !strings.HasPrefix(key, "id_") {
			continue
		}
		n, ok := el.Value().AsInt64OK()
		if !ok {
			return nil, errors.Errorf("episode field %q is not an int", key)
		}
		ids[strings.TrimPrefix(key, "id_")] = n
	}
	return ids, nil
}
