package sitemap

import _ "embed"

// Stylesheet renders sitemap documents as HTML tables in browsers.
//
//go:embed style.xsl
var Stylesheet []byte

const StylesheetContentType = "text/xsl; charset=UTF-8"
