package dataset

import (
	"github.com/golang/geo/r3"

	"github.com/rearrange-ml/seqprep/spatialmath"
)

// solveGoalPose computes the rigid target pose of an object's reconstructed
// point cloud: the recorded motion between the current and goal keyframes,
// applied at the cloud's actual (noisy) current center. With a non-nil
// structureInv the result is expressed in the structure frame instead of the
// world frame.
func solveGoalPose(
	goalPose, currentPose spatialmath.Pose,
	cloudCenter r3.Vector,
	structureInv *spatialmath.Pose,
) spatialmath.Pose {
	currentCloudPose := spatialmath.NewPoseFromPoint(cloudCenter)
	p := spatialmath.Compose(goalPose, spatialmath.Compose(currentPose.Invert(), currentCloudPose))
	if structureInv != nil {
		p = spatialmath.Compose(*structureInv, p)
	}
	return p
}
