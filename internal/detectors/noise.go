package detectors

import (
	"deobf/internal/model"
	"deobf/internal/pattern"
	"deobf/internal/pipeline"
)

// Simplex skew factors for two dimensions.
const (
	skewF2   = 0.3660254037844386
	unskewG2 = 0.21132486540518713
)

const permSize = 512

// NoiseInfo is published under KeyNoise.
type NoiseInfo struct {
	Class   string
	Noise2D string
}

// Noise recognises the simplex noise class by its skew constants.
type Noise struct{ meta }

func NewNoise() *Noise {
	return &Noise{meta{name: "SimplexNoise", provides: []string{KeyNoise}}}
}

func (d *Noise) Detect(ctx *pipeline.Context) error {
	var holders []*model.Class
	for _, c := range ctx.Program.Classes() {
		if clinit := c.StaticInit(); clinit != nil {
			if _, err := pattern.LdcIn(clinit, float64(skewF2)); err == nil {
				holders = append(holders, c)
			}
		}
	}
	cls, err := exactlyOne(ctx, holders, "SimplexNoise", "F2", "class initialising F2")
	if err != nil {
		return err
	}
	noise := cls.Name
	clinit := cls.StaticInit()
	if err := ctx.RenameClass(noise, "SimplexNoise"); err != nil {
		return err
	}
	for _, c := range []struct {
		value float64
		name  string
	}{{skewF2, "F2"}, {unskewG2, "G2"}} {
		ldc, err := pattern.LdcIn(clinit, c.value)
		if err != nil {
			return ctx.Unresolved(noise, c.name, "constant %v not loaded", c.value)
		}
		put := pattern.NextReal(ldc)
		if !is(put, model.PUTSTATIC) || put.Owner != noise || put.Desc != "D" {
			return ctx.Mismatch(noise, c.name, "%v is not stored straight into a static double", c.value)
		}
		if err := ctx.RenameField(noise, put.Name, put.Desc, c.name); err != nil {
			return err
		}
	}

	noise2D, err := exactlyOne(ctx, staticMethods(cls, "(DD)D"), noise, "noise2D", "static (DD)D")
	if err != nil {
		return err
	}
	if err := ctx.RenameMethod(noise, noise2D.Name, noise2D.Desc, "noise2D"); err != nil {
		return err
	}
	for _, opt := range []struct{ desc, name string }{{"(DDD)D", "noise3D"}, {"(D)I", "fastFloor"}} {
		m, ok, err := atMostOne(ctx, staticMethods(cls, opt.desc), noise, opt.name, "static "+opt.desc)
		if err != nil {
			return err
		}
		if ok {
			if err := ctx.RenameMethod(noise, m.Name, m.Desc, opt.name); err != nil {
				return err
			}
		}
	}

	var perms []*model.Insn
	for _, put := range pattern.FindAll(clinit, model.PUTSTATIC) {
		if put.Owner != noise || put.Desc != "[I" {
			continue
		}
		arr, err := source(ctx, clinit, put, 0)
		if err != nil {
			return err
		}
		if !is(arr, model.NEWARRAY) {
			continue
		}
		size, err := source(ctx, clinit, arr, 0)
		if err != nil {
			return err
		}
		if is(size, model.SIPUSH) && size.Operand == permSize {
			perms = append(perms, put)
		}
	}
	perm, err := exactlyOne(ctx, perms, noise, "perm", "permutation table")
	if err != nil {
		return err
	}
	if err := ctx.RenameField(noise, perm.Name, perm.Desc, "perm"); err != nil {
		return err
	}
	grad, err := exactlyOne(ctx, staticFields(cls, "[[I"), noise, "grad3", "gradient table")
	if err != nil {
		return err
	}
	if err := ctx.RenameField(noise, grad.Name, grad.Desc, "grad3"); err != nil {
		return err
	}
	return ctx.Publish(KeyNoise, NoiseInfo{Class: noise, Noise2D: noise2D.Name})
}
