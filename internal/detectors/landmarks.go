package detectors

import "deobf/internal/pipeline"

const landmarksLiteral = "Picking landmarks"

// Landmarks names the landmark manager from its progress message.
type Landmarks struct{ meta }

func NewLandmarks() *Landmarks {
	return &Landmarks{meta{name: "LandmarkManager"}}
}

func (d *Landmarks) Detect(ctx *pipeline.Context) error {
	m, err := uniqueLdcMethod(ctx, ctx.Program.Classes(), landmarksLiteral, "LandmarkManager", "regenerateLandmarks")
	if err != nil {
		return err
	}
	if err := ctx.RenameClass(m.Owner, "LandmarkManager"); err != nil {
		return err
	}
	return ctx.RenameMethod(m.Owner, m.Name, m.Desc, "regenerateLandmarks")
}
