package fluid

import "sync"

// PropertyDescriptor declares an animatable property: the value it rests at
// when no state styles it, how it extrapolates and how it animates when a
// rule does not say.
type PropertyDescriptor struct {
	Key         string
	Default     float64
	Extrapolate Extrapolation
	Animation   Animation
}

var (
	propertiesMu sync.RWMutex
	properties   = map[string]PropertyDescriptor{
		"x":        {Key: "x"},
		"y":        {Key: "y"},
		"width":    {Key: "width"},
		"height":   {Key: "height"},
		"scale":    {Key: "scale", Default: 1},
		"scaleX":   {Key: "scaleX", Default: 1},
		"scaleY":   {Key: "scaleY", Default: 1},
		"rotation": {Key: "rotation"},
		"alpha":    {Key: "alpha", Default: 1, Extrapolate: ExtrapolateClamp},
		"color.r":  {Key: "color.r", Default: 1, Extrapolate: ExtrapolateClamp},
		"color.g":  {Key: "color.g", Default: 1, Extrapolate: ExtrapolateClamp},
		"color.b":  {Key: "color.b", Default: 1, Extrapolate: ExtrapolateClamp},
		"color.a":  {Key: "color.a", Default: 1, Extrapolate: ExtrapolateClamp},
	}
)

// RegisterProperty adds or replaces a property descriptor.
func RegisterProperty(d PropertyDescriptor) {
	if d.Key == "" {
		panic("fluid: property descriptor without key")
	}
	propertiesMu.Lock()
	properties[d.Key] = d
	propertiesMu.Unlock()
}

// Property returns the descriptor registered for key. Unknown keys get a
// zero-default descriptor.
func Property(key string) (PropertyDescriptor, bool) {
	propertiesMu.RLock()
	d, ok := properties[key]
	propertiesMu.RUnlock()
	if !ok {
		return PropertyDescriptor{Key: key}, false
	}
	return d, true
}
