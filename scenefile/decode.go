package scenefile

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/phanxgames/fluid"
)

type sceneDoc struct {
	Viewport *sizeDoc `mapstructure:"viewport"`
	Root     itemDoc  `mapstructure:"root"`
}

type sizeDoc struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

type rectDoc struct {
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

type itemDoc struct {
	Label          string             `mapstructure:"label"`
	Metrics        *rectDoc           `mapstructure:"metrics"`
	Values         map[string]float64 `mapstructure:"values"`
	Expose         []string           `mapstructure:"expose"`
	States         []string           `mapstructure:"states"`
	Animation      *animationDoc      `mapstructure:"animation"`
	ChildAnimation *childDoc          `mapstructure:"childAnimation"`
	When           []ruleDoc          `mapstructure:"when"`
	OnEnter        []ruleDoc          `mapstructure:"onEnter"`
	OnExit         []ruleDoc          `mapstructure:"onExit"`
	Children       []itemDoc          `mapstructure:"children"`
}

type animationDoc struct {
	Duration time.Duration `mapstructure:"duration"`
	Delay    time.Duration `mapstructure:"delay"`
	Easing   string        `mapstructure:"easing"`
	// Spring selects a spring preset by name; the fields below override it.
	Spring    string  `mapstructure:"spring"`
	Stiffness float64 `mapstructure:"stiffness"`
	Damping   float64 `mapstructure:"damping"`
	Mass      float64 `mapstructure:"mass"`
}

type childDoc struct {
	Type      fluid.ChildAnimationType `mapstructure:"type"`
	Direction fluid.Direction          `mapstructure:"direction"`
	Stagger   time.Duration            `mapstructure:"stagger"`
	// Staggers lists explicit per-child increments.
	Staggers []time.Duration `mapstructure:"staggers"`
}

type ruleDoc struct {
	State     string        `mapstructure:"state"`
	Animation *animationDoc `mapstructure:"animation"`
	Loop      int           `mapstructure:"loop"`
	Flip      int           `mapstructure:"flip"`
	Yoyo      int           `mapstructure:"yoyo"`

	Style          map[string]float64 `mapstructure:"style"`
	Interpolations []interpolationDoc `mapstructure:"interpolations"`
	Links          []linkDoc          `mapstructure:"links"`
	From           string             `mapstructure:"from"`
}

type interpolationDoc struct {
	Key         string              `mapstructure:"key"`
	Input       []float64           `mapstructure:"input"`
	Output      []float64           `mapstructure:"output"`
	Extrapolate fluid.Extrapolation `mapstructure:"extrapolate"`
	Animation   *animationDoc       `mapstructure:"animation"`
}

type linkDoc struct {
	Key         string              `mapstructure:"key"`
	Owner       string              `mapstructure:"owner"`
	Value       string              `mapstructure:"value"`
	Input       []float64           `mapstructure:"input"`
	Output      []float64           `mapstructure:"output"`
	Extrapolate fluid.Extrapolation `mapstructure:"extrapolate"`
}

var (
	durationType      = reflect.TypeOf(time.Duration(0))
	childTypeType     = reflect.TypeOf(fluid.ChildAnimationType(0))
	directionType     = reflect.TypeOf(fluid.Direction(0))
	extrapolationType = reflect.TypeOf(fluid.Extrapolation(0))
)

// sentinelHook maps the "group" and "context" duration names to the
// sentinel durations. It runs before the generic duration hook.
func sentinelHook(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != durationType {
		return data, nil
	}
	switch data.(string) {
	case "group":
		return fluid.AsGroup, nil
	case "context":
		return fluid.AsContext, nil
	}
	return data, nil
}

// enumHook decodes the named enums from their String() spelling.
func enumHook(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	switch t {
	case childTypeType:
		for _, v := range []fluid.ChildAnimationType{fluid.Parallel, fluid.Sequential, fluid.Staggered} {
			if v.String() == s {
				return v, nil
			}
		}
		return nil, fmt.Errorf("unknown child animation type %q", s)
	case directionType:
		for _, v := range []fluid.Direction{fluid.DirectionInherit, fluid.Forward, fluid.Backward} {
			if v.String() == s {
				return v, nil
			}
		}
		return nil, fmt.Errorf("unknown direction %q", s)
	case extrapolationType:
		for _, v := range []fluid.Extrapolation{fluid.ExtrapolateExtend, fluid.ExtrapolateClamp, fluid.ExtrapolateIdentity} {
			if v.String() == s {
				return v, nil
			}
		}
		return nil, fmt.Errorf("unknown extrapolation %q", s)
	}
	return data, nil
}

func decode(raw map[string]any) (*sceneDoc, error) {
	var doc sceneDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			sentinelHook,
			mapstructure.StringToTimeDurationHookFunc(),
			enumHook,
		),
		ErrorUnused: true,
		Result:      &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &doc, nil
}
