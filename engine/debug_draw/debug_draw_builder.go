package debug_draw

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// DrawerBuilderOption is a functional option for configuring a Drawer during construction.
type DrawerBuilderOption func(*drawerImpl)

// WithSize is an option builder that sets the image size in pixels.
//
// Parameters:
//   - width: the image width
//   - height: the image height
//
// Returns:
//   - DrawerBuilderOption: a function that applies the size option to a drawer
func WithSize(width, height int) DrawerBuilderOption {
	return func(d *drawerImpl) {
		d.width = width
		d.height = height
	}
}

// WithView is an option builder that fixes the view instead of fitting each pose: origin is the
// model XY position at the image center and scale is pixels per model unit.
//
// Parameters:
//   - origin: the model position at the image center
//   - scale: pixels per model unit
//
// Returns:
//   - DrawerBuilderOption: a function that applies the view option to a drawer
func WithView(origin mgl32.Vec2, scale float32) DrawerBuilderOption {
	return func(d *drawerImpl) {
		d.origin = origin
		d.scale = scale
	}
}

// WithPadding is an option builder that sets the margin kept free when fitting a pose.
func WithPadding(px float32) DrawerBuilderOption {
	return func(d *drawerImpl) {
		d.padding = px
	}
}

// WithLabels is an option builder that toggles joint name labels.
func WithLabels(on bool) DrawerBuilderOption {
	return func(d *drawerImpl) {
		d.labels = on
	}
}

// WithColors is an option builder that sets the background, bone, joint and label colors.
func WithColors(background, bone, joint, label color.RGBA) DrawerBuilderOption {
	return func(d *drawerImpl) {
		d.background = background
		d.bone = bone
		d.jointColor = joint
		d.label = label
	}
}
