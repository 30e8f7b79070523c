// Package scenefile loads fluid stages from YAML scene files.
//
// A scene is one item tree. Each item declares its geometry, initial
// property values, initial states and the three rule lists:
//
//	viewport: {width: 800, height: 600}
//	root:
//	  label: list
//	  childAnimation: {type: staggered, stagger: 50ms}
//	  children:
//	    - label: row1
//	      metrics: {y: 0, height: 40}
//	      when:
//	        - state: selected
//	          animation: {duration: 200ms, easing: outCubic}
//	          style: {x: 24}
//
// The rule shape follows from its keys: style, interpolations, links or
// from (shared). Durations are Go duration strings; "group" and "context"
// select the sentinel durations.
package scenefile
