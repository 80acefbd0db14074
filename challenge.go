package authopener

import (
	"fmt"
	"html"
)

const challengePage = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html>
<head>
<title>401 Authorization Required</title>
</head>
<body>
<h1>Authorization Required</h1>
<p>You need %s access to %s:%s to use this service.</p>
</body>
</html>
`

// Challenge describes a Basic authentication challenge received from upstream.
// URL holds the scheme relative part of the requested URL, e.g. "//host/path".
type Challenge struct {
	Scheme string
	URL    string
	Realm  string
}

// Header returns value for the WWW-Authenticate header.
func (c Challenge) Header() string {
	return `Basic realm="` + c.Realm + `"`
}

// Target returns the full URL the challenge was issued for.
func (c Challenge) Target() string {
	return c.Scheme + ":" + c.URL
}

// Page renders HTML body that is sent together with the 401 response.
func (c Challenge) Page() string {
	return fmt.Sprintf(
		challengePage,
		html.EscapeString(c.Realm),
		html.EscapeString(c.Scheme),
		html.EscapeString(c.URL),
	)
}
