package moments

import _ "embed"

// Version is the released version of the moments module.
//
//go:embed VERSION
var Version string
