// Package debug_draw renders resolved poses as stick figures for inspection: an orthographic
// view down the z axis with bones as lines, joints as squares and optional name labels.
package debug_draw

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// drawerImpl is the implementation of the Drawer interface.
type drawerImpl struct {
	width, height int
	padding       float32
	boneWidth     float32
	jointSize     float32
	labels        bool

	// scale is pixels per world unit; zero fits each pose to the image.
	scale  float32
	origin mgl32.Vec2

	background, bone, jointColor, label color.RGBA
	face                                font.Face
}

// Drawer renders poses to images.
type Drawer interface {
	// Draw renders a resolved pose onto a new image.
	//
	// Parameters:
	//   - pose: a resolved pose
	//
	// Returns:
	//   - *image.RGBA: the rendered image
	Draw(pose *joint.Pose) *image.RGBA

	// Project maps a model-space position to image coordinates for the given pose, using the
	// same view Draw would.
	//
	// Parameters:
	//   - pose: the pose that defines the view when auto-fitting
	//   - p: the model-space position
	//
	// Returns:
	//   - float32, float32: the image x and y
	Project(pose *joint.Pose, p mgl32.Vec3) (float32, float32)

	// Save renders a pose and writes it as a PNG file.
	//
	// Parameters:
	//   - path: the output file path
	//   - pose: a resolved pose
	//
	// Returns:
	//   - error: an error if the file could not be written
	Save(path string, pose *joint.Pose) error
}

var _ Drawer = &drawerImpl{}

// NewDrawer creates a Drawer. By default it renders 512x512 images fitted to each pose, with labels.
//
// Parameters:
//   - options: variadic list of DrawerBuilderOption functions to configure the Drawer
//
// Returns:
//   - Drawer: the new drawer
func NewDrawer(options ...DrawerBuilderOption) Drawer {
	d := &drawerImpl{
		width:      512,
		height:     512,
		padding:    32,
		boneWidth:  3,
		jointSize:  7,
		labels:     true,
		background: color.RGBA{R: 24, G: 24, B: 28, A: 255},
		bone:       color.RGBA{R: 220, G: 220, B: 220, A: 255},
		jointColor: color.RGBA{R: 255, G: 160, B: 32, A: 255},
		label:      color.RGBA{R: 120, G: 200, B: 255, A: 255},
		face:       basicfont.Face7x13,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *drawerImpl) Draw(pose *joint.Pose) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(d.background), image.Point{}, draw.Src)

	view := d.fit(pose)
	tree := pose.Tree()

	bones := vector.NewRasterizer(d.width, d.height)
	for h := range pose.Joints() {
		parent := tree.Parent(h)
		if parent.IsNil() {
			continue
		}
		x0, y0 := view.project(pose.Joint(parent).WorldPosition())
		x1, y1 := view.project(pose.Joint(h).WorldPosition())
		addLine(bones, x0, y0, x1, y1, d.boneWidth)
	}
	bones.Draw(img, img.Bounds(), image.NewUniform(d.bone), image.Point{})

	joints := vector.NewRasterizer(d.width, d.height)
	half := d.jointSize / 2
	for h := range pose.Joints() {
		x, y := view.project(pose.Joint(h).WorldPosition())
		addRect(joints, x-half, y-half, x+half, y+half)
	}
	joints.Draw(img, img.Bounds(), image.NewUniform(d.jointColor), image.Point{})

	if d.labels {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(d.label),
			Face: d.face,
		}
		for h := range pose.Joints() {
			x, y := view.project(pose.Joint(h).WorldPosition())
			drawer.Dot = fixed.Point26_6{
				X: fixed.I(int(x + half + 2)),
				Y: fixed.I(int(y - half - 2)),
			}
			drawer.DrawString(pose.Name(h))
		}
	}
	return img
}

func (d *drawerImpl) Project(pose *joint.Pose, p mgl32.Vec3) (float32, float32) {
	return d.fit(pose).project(p)
}

func (d *drawerImpl) Save(path string, pose *joint.Pose) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, d.Draw(pose)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return file.Close()
}

// view is an orthographic mapping from the model XY plane to image pixels, y up.
type view struct {
	scale  float32
	origin mgl32.Vec2
	cx, cy float32
}

func (v view) project(p mgl32.Vec3) (float32, float32) {
	return v.cx + (p.X()-v.origin.X())*v.scale, v.cy - (p.Y()-v.origin.Y())*v.scale
}

// fit returns the configured view, or one that centers the pose's joints inside the padding.
func (d *drawerImpl) fit(pose *joint.Pose) view {
	v := view{scale: d.scale, origin: d.origin, cx: float32(d.width) / 2, cy: float32(d.height) / 2}
	if d.scale > 0 {
		return v
	}

	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := -minX, -minY
	for h := range pose.Joints() {
		p := pose.Joint(h).WorldPosition()
		minX, maxX = min(minX, p.X()), max(maxX, p.X())
		minY, maxY = min(minY, p.Y()), max(maxY, p.Y())
	}
	v.origin = mgl32.Vec2{(minX + maxX) / 2, (minY + maxY) / 2}

	availW := float32(d.width) - 2*d.padding
	availH := float32(d.height) - 2*d.padding
	spanX, spanY := maxX-minX, maxY-minY
	switch {
	case spanX < 1e-6 && spanY < 1e-6:
		v.scale = 1
	case spanX < 1e-6:
		v.scale = availH / spanY
	case spanY < 1e-6:
		v.scale = availW / spanX
	default:
		v.scale = min(availW/spanX, availH/spanY)
	}
	return v
}

// addLine adds a quad of the given width centered on the segment.
func addLine(r *vector.Rasterizer, x0, y0, x1, y1, width float32) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	r.MoveTo(x0+nx, y0+ny)
	r.LineTo(x1+nx, y1+ny)
	r.LineTo(x1-nx, y1-ny)
	r.LineTo(x0-nx, y0-ny)
	r.ClosePath()
}

func addRect(r *vector.Rasterizer, x0, y0, x1, y1 float32) {
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.ClosePath()
}
