// Package camera provides the pinhole camera model used to back-project
// recorded depth images into per-pixel 3D point fields.
package camera

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective
// projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return errors.New("pinhole camera intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return fmt.Errorf("invalid size (%d, %d)", params.Width, params.Height)
	}
	if params.Fx <= 0 {
		return fmt.Errorf("invalid focal length Fx = %v", params.Fx)
	}
	if params.Fy <= 0 {
		return fmt.Errorf("invalid focal length Fy = %v", params.Fy)
	}
	if params.Ppx < 0 {
		return fmt.Errorf("invalid principal X point Ppx = %v", params.Ppx)
	}
	if params.Ppy < 0 {
		return fmt.Errorf("invalid principal Y point Ppy = %v", params.Ppy)
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and
// turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

// PixelToPoint transforms a pixel with depth to a 3D point in the camera frame.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a 3D point in the camera frame to a pixel in the image plane.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		return (x/z)*params.Fx + params.Ppx, (y/z)*params.Fy + params.Ppy
	}
	return -1.0, -1.0
}

// ComputeXYZ back-projects a row-major depth image (meters) into a per-pixel
// 3D point field in the camera frame. The returned slice is row-major with
// length Width*Height.
func (params *PinholeCameraIntrinsics) ComputeXYZ(depth []float64) ([]r3.Vector, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if len(depth) != params.Width*params.Height {
		return nil, errors.Errorf("depth image has %d pixels, intrinsics expect %dx%d",
			len(depth), params.Width, params.Height)
	}
	pts := make([]r3.Vector, len(depth))
	for y := 0; y < params.Height; y++ {
		for x := 0; x < params.Width; x++ {
			i := y*params.Width + x
			px, py, pz := params.PixelToPoint(float64(x), float64(y), depth[i])
			pts[i] = r3.Vector{X: px, Y: py, Z: pz}
		}
	}
	return pts, nil
}
