package domain

// Built-in node types understood by every host graph.
const (
	NodeTypeTransform  NodeType = "transform"
	NodeTypeDependency NodeType = "dependency"
)

// Attribute names of the built-in transform node.
const (
	AttrTranslate  = "translate"
	AttrTranslateX = "translateX"
	AttrTranslateY = "translateY"
	AttrTranslateZ = "translateZ"
	AttrVisibility = "visibility"
)
