package apidiff

import (
	"regexp"
	"sort"
	"strings"

	cserr "github.com/changescribe/changescribe/internal/errors"
)

// Field is one request-body field extracted from a route handler
type Field struct {
	Name     string
	Type     string
	Required bool
	Default  bool // declared with a default value
}

// RouteShape is the parsed surface of one route file: the handler
// methods it exports, the request schema, and the response keys.
type RouteShape struct {
	Path           string // URL path pattern, e.g. /api/packages/[id]
	Methods        []string
	RequestFields  map[string]Field
	ResponseFields []string
	Auth           string
	// DynamicBody is set when the request body is constructed
	// dynamically (spreads, computed keys), making the shape undecidable
	DynamicBody bool
}

var (
	handlerRe  = regexp.MustCompile(`export\s+(?:async\s+)?function\s+(GET|POST|PUT|PATCH|DELETE)\b`)
	zObjectRe  = regexp.MustCompile(`z\.object\s*\(\s*\{`)
	jsonCallRe = regexp.MustCompile(`(?:NextResponse|Response)\.json\s*\(\s*\{`)
	destrucRe  = regexp.MustCompile(`const\s*\{([^}]*)\}\s*=\s*await\s+(?:req|request)\.json\(\)`)
	dynamicRe  = regexp.MustCompile(`\.\.\.\w+|\[\s*\w+\s*\]\s*:`)
	authRe     = regexp.MustCompile(`(requireAuth|getServerSession|requireRole|checkPermission|withAuth)\s*\(([^)]*)\)?`)
)

// RoutePathFromFile derives the URL path pattern from an app-router
// file path: app/api/packages/[id]/route.ts -> /api/packages/[id].
// Dynamic [id] segments are kept as-is.
func RoutePathFromFile(filePath string) string {
	p := filePath
	p = strings.TrimSuffix(p, "/route.ts")
	p = strings.TrimSuffix(p, "/route.tsx")
	p = strings.TrimPrefix(p, "app")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// IsRouteFile reports whether a path is an app-router route handler
func IsRouteFile(path string) bool {
	return strings.HasPrefix(path, "app/api/") &&
		(strings.HasSuffix(path, "/route.ts") || strings.HasSuffix(path, "/route.tsx"))
}

// ParseRoute extracts the route shape from handler source.
// Returns an UnparseableFile error when the file exports no handlers at
// all; shape ambiguities (dynamic bodies) are recorded on the shape, not
// returned as errors, so the breaking-change rule can report unknown.
func ParseRoute(filePath, content string) (*RouteShape, error) {
	shape := &RouteShape{
		Path:          RoutePathFromFile(filePath),
		RequestFields: map[string]Field{},
	}

	for _, m := range handlerRe.FindAllStringSubmatch(content, -1) {
		shape.Methods = append(shape.Methods, m[1])
	}
	if len(shape.Methods) == 0 {
		return nil, cserr.UnparseableFile(filePath, nil)
	}
	sort.Strings(shape.Methods)

	if loc := zObjectRe.FindStringIndex(content); loc != nil {
		block, ok := braceBlock(content, loc[1]-1)
		if !ok {
			return nil, cserr.UnparseableFile(filePath, nil)
		}
		if dynamicRe.MatchString(block) {
			shape.DynamicBody = true
		} else {
			for _, entry := range splitTopLevel(block) {
				f, ok := parseZodField(entry)
				if ok {
					shape.RequestFields[f.Name] = f
				}
			}
		}
	} else if m := destrucRe.FindStringSubmatch(content); m != nil {
		// Destructured req.json(): fields are required, types unknown
		for _, name := range strings.Split(m[1], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			// Rest element means the shape is open-ended
			if strings.HasPrefix(name, "...") {
				shape.DynamicBody = true
				break
			}
			shape.RequestFields[name] = Field{Name: name, Type: "unknown", Required: true}
		}
	} else if strings.Contains(content, ".json()") && hasMutatingMethod(shape.Methods) {
		// A body is read but its shape is not declared anywhere we can see
		shape.DynamicBody = true
	}

	shape.ResponseFields = responseKeys(content)

	if m := authRe.FindStringSubmatch(content); m != nil {
		shape.Auth = strings.TrimSpace(m[1] + "(" + strings.TrimSpace(m[2]) + ")")
	}

	return shape, nil
}

// hasMutatingMethod reports whether any handler accepts a request body
func hasMutatingMethod(methods []string) bool {
	for _, m := range methods {
		switch m {
		case "POST", "PUT", "PATCH":
			return true
		}
	}
	return false
}

// responseKeys collects top-level keys from every Response.json({...})
// object literal, deduplicated, in first-seen order
func responseKeys(content string) []string {
	var keys []string
	seen := map[string]bool{}

	for _, loc := range jsonCallRe.FindAllStringIndex(content, -1) {
		block, ok := braceBlock(content, loc[1]-1)
		if !ok {
			continue
		}
		for _, entry := range splitTopLevel(block) {
			key := entryKey(entry)
			if key != "" && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// parseZodField parses one `name: z.string().optional()` style entry
func parseZodField(entry string) (Field, bool) {
	key := entryKey(entry)
	if key == "" {
		return Field{}, false
	}
	idx := strings.Index(entry, ":")
	if idx < 0 {
		return Field{}, false
	}
	expr := strings.TrimSpace(entry[idx+1:])

	f := Field{Name: key, Type: zodType(expr), Required: true}
	if strings.Contains(expr, ".optional()") || strings.Contains(expr, ".nullish()") {
		f.Required = false
	}
	if strings.Contains(expr, ".default(") {
		f.Required = false
		f.Default = true
	}
	return f, true
}

// zodType extracts the base type name from a zod expression
func zodType(expr string) string {
	m := regexp.MustCompile(`z\.(\w+)`).FindStringSubmatch(expr)
	if m == nil {
		return "unknown"
	}
	return m[1]
}

// entryKey returns the key of an object-literal entry, or "" if the
// entry is not a plain `key: value` or shorthand `key` form
func entryKey(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}
	idx := strings.IndexAny(entry, ":")
	key := entry
	if idx >= 0 {
		key = entry[:idx]
	}
	key = strings.TrimSpace(key)
	key = strings.Trim(key, `"'`)
	if !regexp.MustCompile(`^\w+$`).MatchString(key) {
		return ""
	}
	return key
}

// braceBlock returns the contents of the balanced {...} block starting
// at the given opening brace index
func braceBlock(s string, open int) (string, bool) {
	if open < 0 || open >= len(s) || s[open] != '{' {
		return "", false
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits an object-literal body into entries at depth-0
// commas
func splitTopLevel(s string) []string {
	var entries []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				entries = append(entries, s[start:i])
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		entries = append(entries, s[start:])
	}
	return entries
}
