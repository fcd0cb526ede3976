// Package urlutil implements the bespoke URL arithmetic the page runtime
// needs for script/document fetching and navigation: component extraction,
// relative resolution with ../ flattening, optional percent-encoding and
// document equality. Every exported function is pure over a canonical
// "[:0]" string, per the data model in SPEC_FULL.md §4.1 — there is no URL
// struct, only functions.
//
// This is hand-rolled rather than built on net/url: the resolution grammar
// here (silent clamp of ../ at the path root, ?-prefixed query replacement,
// the specific percent-encoding allowlist) is bespoke web-compatibility
// behavior that net/url's RFC-3986-faithful ResolveReference does not
// reproduce. See DESIGN.md for the full justification.
package urlutil

import "strings"

// components is the internal, parsed view of a URL-or-reference string.
// HasX flags distinguish "absent" from "present but empty" (e.g. a bare
// trailing "?" must still replace the query with the empty string).
type components struct {
	HasScheme bool
	Scheme    string

	HasAuthority bool
	Authority    string // userinfo@host:port, exactly as it appeared

	Path string

	HasQuery bool
	Query    string // without the leading '?'

	HasFragment bool
	Fragment    string // without the leading '#'
}

func isSchemeChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsCompleteHTTPUrl reports whether url begins with a well-formed
// "scheme://" prefix, per spec.md §4.1. The name is inherited from the
// source spec; despite the name this check is scheme-agnostic (any
// ALPHA-led scheme qualifies), matching the spec text exactly.
func IsCompleteHTTPUrl(url string) bool {
	idx := strings.Index(url, "://")
	if idx <= 0 {
		return false
	}
	scheme := url[:idx]
	if !isAlpha(scheme[0]) {
		return false
	}
	for i := 1; i < len(scheme); i++ {
		if !isSchemeChar(scheme[i]) {
			return false
		}
	}
	return true
}

func parse(s string) components {
	var c components

	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		c.HasFragment = true
		c.Fragment = s[idx+1:]
		s = s[:idx]
	}
	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		c.HasQuery = true
		c.Query = s[idx+1:]
		s = s[:idx]
	}

	if idx := strings.Index(s, "://"); idx > 0 && isValidScheme(s[:idx]) {
		c.HasScheme = true
		c.Scheme = s[:idx]
		s = s[idx+3:]
		c.HasAuthority = true
		if slash := strings.IndexByte(s, '/'); slash >= 0 {
			c.Authority = s[:slash]
			c.Path = s[slash:]
		} else {
			c.Authority = s
			c.Path = ""
		}
		return c
	}

	if strings.HasPrefix(s, "//") {
		rest := s[2:]
		c.HasAuthority = true
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			c.Authority = rest[:slash]
			c.Path = rest[slash:]
		} else {
			c.Authority = rest
			c.Path = ""
		}
		return c
	}

	c.Path = s
	return c
}

func isValidScheme(s string) bool {
	if s == "" || !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isSchemeChar(s[i]) {
			return false
		}
	}
	return true
}

func build(c components) string {
	var b strings.Builder
	if c.HasScheme {
		b.WriteString(c.Scheme)
		b.WriteString("://")
	}
	if c.HasAuthority {
		b.WriteString(c.Authority)
	}
	b.WriteString(c.Path)
	if c.HasQuery {
		b.WriteByte('?')
		b.WriteString(c.Query)
	}
	if c.HasFragment {
		b.WriteByte('#')
		b.WriteString(c.Fragment)
	}
	return b.String()
}

// removeDotSegments implements the RFC 3986 §5.2.4 dot-segment removal
// algorithm, adapted so that a "../" with nothing left to pop is silently
// dropped instead of treated as an error (spec.md §4.1: "An attempt to go
// above is silently dropped").
func removeDotSegments(path string) string {
	output := make([]byte, 0, len(path))
	input := path

	popLastSegment := func() {
		idx := strings.LastIndexByte(string(output), '/')
		if idx < 0 {
			output = output[:0]
			return
		}
		output = output[:idx]
	}

	for len(input) > 0 {
		switch {
		case strings.HasPrefix(input, "../"):
			input = input[3:]
		case strings.HasPrefix(input, "./"):
			input = input[2:]
		case strings.HasPrefix(input, "/./"):
			input = "/" + input[3:]
		case input == "/.":
			input = "/"
		case strings.HasPrefix(input, "/../"):
			input = "/" + input[4:]
			popLastSegment()
		case input == "/..":
			input = "/"
			popLastSegment()
		case input == ".":
			input = ""
		case input == "..":
			input = ""
		default:
			var idx int
			if input[0] == '/' {
				if next := strings.IndexByte(input[1:], '/'); next >= 0 {
					idx = next + 1
				} else {
					idx = len(input)
				}
			} else {
				if next := strings.IndexByte(input, '/'); next >= 0 {
					idx = next
				} else {
					idx = len(input)
				}
			}
			output = append(output, input[:idx]...)
			input = input[idx:]
		}
	}
	if len(output) == 0 {
		return ""
	}
	return string(output)
}

// Resolve joins path against base following spec.md §4.1's grammar:
//
//   - path == ""     -> base, unchanged.
//   - a complete URL -> path itself (see IsCompleteHTTPUrl).
//   - "?..."         -> replaces base's query and fragment (no fragment unless path carries one).
//   - "#..."         -> replaces base's fragment only.
//   - "//..."        -> keeps base's scheme, replaces authority+path+query+fragment.
//   - "/..."         -> keeps base's scheme+authority, replaces path+query+fragment.
//   - otherwise      -> joined relative to the last "/" of base's path.
//
// When encode is true, the result's path/query/fragment are percent-encoded
// per PercentEncodePath/PercentEncodeQuery/PercentEncodeFragment.
func Resolve(base, path string, encode bool) string {
	if path == "" {
		return maybeEncodeWhole(base, encode)
	}
	if IsCompleteHTTPUrl(path) {
		return maybeEncodeWhole(path, encode)
	}

	b := parse(base)
	p := parse(path)

	var result components
	switch {
	case strings.HasPrefix(path, "?"):
		result.HasScheme, result.Scheme = b.HasScheme, b.Scheme
		result.HasAuthority, result.Authority = b.HasAuthority, b.Authority
		result.Path = b.Path
		result.HasQuery, result.Query = true, p.Query
		result.HasFragment, result.Fragment = p.HasFragment, p.Fragment

	case strings.HasPrefix(path, "#"):
		result.HasScheme, result.Scheme = b.HasScheme, b.Scheme
		result.HasAuthority, result.Authority = b.HasAuthority, b.Authority
		result.Path = b.Path
		result.HasQuery, result.Query = b.HasQuery, b.Query
		result.HasFragment, result.Fragment = true, p.Fragment

	case strings.HasPrefix(path, "//"):
		result.HasScheme, result.Scheme = b.HasScheme, b.Scheme
		result.HasAuthority, result.Authority = true, p.Authority
		result.Path = removeDotSegments(p.Path)
		result.HasQuery, result.Query = p.HasQuery, p.Query
		result.HasFragment, result.Fragment = p.HasFragment, p.Fragment

	case strings.HasPrefix(path, "/"):
		result.HasScheme, result.Scheme = b.HasScheme, b.Scheme
		result.HasAuthority, result.Authority = b.HasAuthority, b.Authority
		result.Path = removeDotSegments(p.Path)
		result.HasQuery, result.Query = p.HasQuery, p.Query
		result.HasFragment, result.Fragment = p.HasFragment, p.Fragment

	default:
		result.HasScheme, result.Scheme = b.HasScheme, b.Scheme
		result.HasAuthority, result.Authority = b.HasAuthority, b.Authority
		dir := "/"
		if lastSlash := strings.LastIndexByte(b.Path, '/'); lastSlash >= 0 {
			dir = b.Path[:lastSlash+1]
		}
		result.Path = removeDotSegments(dir + p.Path)
		result.HasQuery, result.Query = p.HasQuery, p.Query
		result.HasFragment, result.Fragment = p.HasFragment, p.Fragment
	}

	out := build(result)
	if encode {
		out = maybeEncodeWhole(out, true)
	}
	return out
}

func maybeEncodeWhole(url string, encode bool) string {
	if !encode {
		return url
	}
	c := parse(url)
	c.Path = PercentEncodePath(c.Path)
	if c.HasQuery {
		c.Query = PercentEncodeQuery(c.Query)
	}
	if c.HasFragment {
		c.Fragment = PercentEncodeFragment(c.Fragment)
	}
	return build(c)
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

func isSubDelim(c byte) bool {
	switch c {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=':
		return true
	}
	return false
}

func isPathSafe(c byte) bool {
	return isUnreserved(c) || isSubDelim(c) || c == '/' || c == ':' || c == '@'
}

const upperHex = "0123456789ABCDEF"

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// percentEncode encodes s leaving bytes for which safe returns true (and
// already-well-formed %HH escapes) untouched, per spec.md §4.1.
func percentEncode(s string, safe func(byte) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) && isHexDigit(s[i+1]) && isHexDigit(s[i+2]) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			b.WriteByte(s[i+2])
			i += 2
			continue
		}
		if safe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0xf])
	}
	return b.String()
}

// PercentEncodePath encodes a path component per spec.md §4.1's reserved
// set (ALPHA/DIGIT, -._~, sub-delims, /:@).
func PercentEncodePath(s string) string {
	return percentEncode(s, isPathSafe)
}

// PercentEncodeQuery encodes a query component, additionally keeping '?'
// unescaped as spec.md §4.1 requires.
func PercentEncodeQuery(s string) string {
	return percentEncode(s, func(c byte) bool { return isPathSafe(c) || c == '?' })
}

// PercentEncodeFragment encodes a fragment component using the same
// allowlist as a path.
func PercentEncodeFragment(s string) string {
	return percentEncode(s, isPathSafe)
}

// EqlDocument reports whether a and b agree up to (but not including) the
// first '#' in each.
func EqlDocument(a, b string) bool {
	return beforeFragment(a) == beforeFragment(b)
}

func beforeFragment(s string) string {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// GetProtocol returns the scheme with its trailing colon, e.g. "https:".
func GetProtocol(url string) string {
	c := parse(url)
	if !c.HasScheme {
		return ""
	}
	return c.Scheme + ":"
}

func splitAuthority(a string) (userinfo, host, port string) {
	if idx := strings.LastIndexByte(a, '@'); idx >= 0 {
		userinfo = a[:idx]
		a = a[idx+1:]
	}
	if strings.HasPrefix(a, "[") {
		if end := strings.IndexByte(a, ']'); end >= 0 {
			host = a[:end+1]
			rest := a[end+1:]
			if strings.HasPrefix(rest, ":") {
				port = rest[1:]
			}
			return
		}
	}
	if idx := strings.LastIndexByte(a, ':'); idx >= 0 {
		host = a[:idx]
		port = a[idx+1:]
	} else {
		host = a
	}
	return
}

// GetUserInfo returns the userinfo portion of the authority, if any.
func GetUserInfo(url string) string {
	c := parse(url)
	u, _, _ := splitAuthority(c.Authority)
	return u
}

// GetHost returns "hostname[:port]", excluding any userinfo.
func GetHost(url string) string {
	c := parse(url)
	_, host, port := splitAuthority(c.Authority)
	if port == "" {
		return host
	}
	return host + ":" + port
}

// GetHostname returns the host without a port.
func GetHostname(url string) string {
	c := parse(url)
	_, host, _ := splitAuthority(c.Authority)
	return host
}

// GetPort returns the authority's port, or "" if absent.
func GetPort(url string) string {
	c := parse(url)
	_, _, port := splitAuthority(c.Authority)
	return port
}

// GetPathname returns the path component, exactly as stored.
func GetPathname(url string) string {
	return parse(url).Path
}

// GetSearch returns the query component including its leading '?', or ""
// if the URL has none.
func GetSearch(url string) string {
	c := parse(url)
	if !c.HasQuery {
		return ""
	}
	return "?" + c.Query
}

// GetHash returns the fragment component including its leading '#', or ""
// if the URL has none.
func GetHash(url string) string {
	c := parse(url)
	if !c.HasFragment {
		return ""
	}
	return "#" + c.Fragment
}

// SetProtocol replaces the scheme, preserving every other component.
func SetProtocol(url, protocol string) string {
	c := parse(url)
	c.HasScheme = true
	c.Scheme = strings.TrimSuffix(protocol, ":")
	return build(c)
}

// SetHost replaces the whole "hostname[:port]" authority segment,
// preserving any userinfo.
func SetHost(url, host string) string {
	c := parse(url)
	userinfo, _, _ := splitAuthority(c.Authority)
	c.HasAuthority = true
	if userinfo != "" {
		c.Authority = userinfo + "@" + host
	} else {
		c.Authority = host
	}
	return build(c)
}

// SetHostname replaces only the host, preserving userinfo and port.
func SetHostname(url, hostname string) string {
	c := parse(url)
	userinfo, _, port := splitAuthority(c.Authority)
	auth := hostname
	if port != "" {
		auth += ":" + port
	}
	if userinfo != "" {
		auth = userinfo + "@" + auth
	}
	c.HasAuthority = true
	c.Authority = auth
	return build(c)
}

// SetPort replaces only the port, preserving userinfo and host.
func SetPort(url, port string) string {
	c := parse(url)
	userinfo, host, _ := splitAuthority(c.Authority)
	auth := host
	if port != "" {
		auth += ":" + port
	}
	if userinfo != "" {
		auth = userinfo + "@" + auth
	}
	c.HasAuthority = true
	c.Authority = auth
	return build(c)
}

// SetPathname replaces the path component.
func SetPathname(url, pathname string) string {
	c := parse(url)
	if pathname != "" && !strings.HasPrefix(pathname, "/") {
		pathname = "/" + pathname
	}
	c.Path = pathname
	return build(c)
}

// SetSearch replaces the query component. The leading '?' is optional in
// search and stripped if present.
func SetSearch(url, search string) string {
	c := parse(url)
	search = strings.TrimPrefix(search, "?")
	if search == "" {
		c.HasQuery = false
		c.Query = ""
		return build(c)
	}
	c.HasQuery = true
	c.Query = search
	return build(c)
}

// SetHash replaces the fragment component. The leading '#' is optional in
// hash and stripped if present.
func SetHash(url, hash string) string {
	c := parse(url)
	hash = strings.TrimPrefix(hash, "#")
	if hash == "" {
		c.HasFragment = false
		c.Fragment = ""
		return build(c)
	}
	c.HasFragment = true
	c.Fragment = hash
	return build(c)
}

// GetOrigin returns "scheme://host[:port]" with default ports (80 for
// http, 443 for https) and any userinfo stripped. It returns ("", false)
// for non-http(s) URLs.
func GetOrigin(url string) (string, bool) {
	c := parse(url)
	if !c.HasScheme || (c.Scheme != "http" && c.Scheme != "https") {
		return "", false
	}
	_, host, port := splitAuthority(c.Authority)
	if (c.Scheme == "http" && port == "80") || (c.Scheme == "https" && port == "443") {
		port = ""
	}
	origin := c.Scheme + "://" + host
	if port != "" {
		origin += ":" + port
	}
	return origin, true
}

// GetRobotsUrl derives the "/robots.txt" URL for the document's origin. It
// returns ("", false) for non-http(s) URLs.
func GetRobotsUrl(url string) (string, bool) {
	origin, ok := GetOrigin(url)
	if !ok {
		return "", false
	}
	return origin + "/robots.txt", true
}

// ConcatQueryString appends extra (formatted as "key=value", with no
// leading '&' or '?') to url's existing query string.
func ConcatQueryString(url, extra string) string {
	if extra == "" {
		return url
	}
	c := parse(url)
	if c.HasQuery && c.Query != "" {
		c.Query = c.Query + "&" + extra
	} else {
		c.HasQuery = true
		c.Query = extra
	}
	return build(c)
}
