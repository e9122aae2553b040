package config

import (
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

func overF(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func overS(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeModule overlays non-zero fields from override onto base.
// This is used when loading a module file and then applying inline values.
func MergeModule(base, override pvgen.ModuleParams) pvgen.ModuleParams {
	out := base
	overS(&out.Name, override.Name)
	overS(&out.Manufacturer, override.Manufacturer)
	overF(&out.STC, override.STC)
	if override.Cells != 0 {
		out.Cells = override.Cells
	}
	overF(&out.Area, override.Area)
	overF(&out.VOC, override.VOC)
	overF(&out.ISC, override.ISC)
	overF(&out.VMP, override.VMP)
	overF(&out.IMP, override.IMP)
	overF(&out.GammaPmax, override.GammaPmax)
	overF(&out.AlphaSC, override.AlphaSC)
	overF(&out.ILRef, override.ILRef)
	overF(&out.IORef, override.IORef)
	overF(&out.ARef, override.ARef)
	overF(&out.RS, override.RS)
	overF(&out.RShRef, override.RShRef)
	return out
}

// MergePump overlays non-zero fields from override onto base. Inline points
// replace the file's table entirely.
func MergePump(base, override pump.Spec) pump.Spec {
	out := base
	overS(&out.Name, override.Name)
	overS(&out.Manufacturer, override.Manufacturer)
	overS(&out.Method, override.Method)
	overF(&out.Price, override.Price)
	overF(&out.LifespanYears, override.LifespanYears)
	if len(override.Points) > 0 {
		out.Points = append([]pump.Point(nil), override.Points...)
	}
	return out
}
