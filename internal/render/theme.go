package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by receiver provenance category.
	EdgeStaticField string // receiver read from a static field
	EdgeField       string // receiver read from an instance field
	EdgeFresh       string // receiver allocated in the caller
	EdgeLocal       string // receiver loaded from a local slot
	EdgeDirect      string // static calls, no receiver
	EdgeUnresolved  string // receiver from outside the method body

	// Node accents.
	RenamedFill  string // classes and methods with a recovered name
	ExternalText string // runtime library targets

	// Cluster styling.
	ClusterBorder string // subgraph cluster border
	ClusterLabel  string // subgraph cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeStaticField: "#0B3D91", // NASA blue
	EdgeField:       "#00695C", // teal
	EdgeFresh:       "#E65100", // deep orange
	EdgeLocal:       "#9E9E9E", // gray
	EdgeDirect:      "#424242", // dark gray
	EdgeUnresolved:  "#FC3D21", // NASA red

	RenamedFill:  "#ECEFF1", // blue-gray 50
	ExternalText: "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
