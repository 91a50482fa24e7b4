package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter orchestrates a glTF/GLB import: it parses the document, extracts a rig per skin
// and the clips targeting each rig.
type gltfImporter interface {
	// Import loads a glTF/GLB file.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *Asset: the imported rigs and clips
	//   - error: error if import fails
	Import(path string) (*Asset, error)

	// ImportReader loads a glTF JSON or GLB stream.
	//
	// Parameters:
	//   - name: the fallback asset name
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Asset: the imported rigs and clips
	//   - error: error if import fails
	ImportReader(name string, r io.Reader, isGLB bool) (*Asset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*Asset, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := filepath.Base(path)
	return imp.importFromParser(parser, strings.TrimSuffix(base, filepath.Ext(base)))
}

func (imp *gltfImporterImpl) ImportReader(name string, r io.Reader, isGLB bool) (*Asset, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}

	return imp.importFromParser(parser, name)
}

// importFromParser extracts every skin of an already parsed document.
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackName string) (*Asset, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	skeletonExtractor := newGLTFSkeletonExtractor(parser)
	animationExtractor := newGLTFAnimationExtractor(parser)

	asset := &Asset{Name: gltfExtractAssetName(doc, fallbackName)}
	for skinIndex := range doc.Skins {
		rig, nodeToJoint, err := skeletonExtractor.ExtractRig(skinIndex)
		if err != nil {
			return nil, fmt.Errorf("skeleton extraction failed: %w", err)
		}

		rig.Clips, err = animationExtractor.ExtractClipsForRig(rig, nodeToJoint)
		if err != nil {
			return nil, fmt.Errorf("animation extraction failed: %w", err)
		}
		asset.Rigs = append(asset.Rigs, rig)
	}

	return asset, nil
}

// gltfExtractAssetName prefers the default scene name, then the fallback.
func gltfExtractAssetName(doc *gltfDocument, fallback string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_asset"
}
