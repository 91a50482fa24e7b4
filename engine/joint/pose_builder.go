package joint

// poseConfig holds construction settings for a Pose.
type poseConfig struct {
	capacity int
}

// PoseBuilderOption is a function that configures a Pose at construction.
type PoseBuilderOption func(*poseConfig)

// WithJointCapacity preallocates room for n joints.
//
// Parameters:
//   - n: the expected joint count
//
// Returns:
//   - PoseBuilderOption: the option
func WithJointCapacity(n int) PoseBuilderOption {
	return func(c *poseConfig) {
		c.capacity = n
	}
}
