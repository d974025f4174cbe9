package tools

import "topovibe/pkg/session"

// NewCatalogue returns a registry holding every geometry tool bound to sc.
func NewCatalogue(sc session.Context) *ToolRegistry {
	tr := NewToolRegistry()
	for _, t := range []Tool{
		NewVertexTool(sc),
		NewEdgeTool(sc),
		NewWireTool(sc),
		NewFaceTool(sc),
		NewRectangleTool(sc),
		NewCircleTool(sc),
		NewCubeTool(sc),
		NewPrismTool(sc),
		NewCylinderTool(sc),
		NewListItemsTool(sc),
		NewObjectInfoTool(sc),
		NewClearSessionTool(sc),
	} {
		tr.Register(t)
	}
	return tr
}
