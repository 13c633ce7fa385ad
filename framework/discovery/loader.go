package discovery

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Class is a loaded Go type: the handle extraction and validation work on.
type Class struct {
	// Name is the qualified type name, e.g. "github.com/acme/mail.SMTPMailer".
	Name     string
	TypeName string
	File     string
	// Doc is the comment attached to the type declaration, or nil.
	Doc *ast.CommentGroup

	fset *token.FileSet
	pkg  *parsedPackage
}

// Line returns the 1-based line of pos within the class's file set.
func (c *Class) Line(pos token.Pos) int {
	return c.fset.Position(pos).Line
}

// PublicMethods returns the sorted names of exported methods in the type's
// method set: methods declared on it, value and pointer receivers alike, plus
// methods promoted from embedded fields whose types are declared in the same
// package. Promotion follows the selector rules: a shallower field or method
// hides deeper ones and a name found twice at the same depth is not promoted.
// Embedded types from other packages are not resolved. Close is the type's
// destructor and is left out; constructors are plain functions and never
// show up here.
func (c *Class) PublicMethods() []string {
	methods := make(map[string]bool)
	resolved := make(map[string]bool)
	visited := make(map[string]bool)

	level := []string{c.TypeName}
	for len(level) > 0 {
		count := make(map[string]int)
		isMethod := make(map[string]bool)
		var next []string

		for _, typ := range level {
			visited[typ] = true
			for _, m := range c.pkg.methodsOf(typ) {
				count[m]++
				isMethod[m] = true
			}
			fields, embedded := c.pkg.fieldsOf(typ)
			for _, f := range fields {
				count[f]++
			}
			next = append(next, embedded...)
		}

		for name, n := range count {
			if resolved[name] {
				continue
			}
			resolved[name] = true
			if n == 1 && isMethod[name] && ast.IsExported(name) && name != destructorName {
				methods[name] = true
			}
		}

		level = level[:0]
		for _, typ := range next {
			if !visited[typ] {
				level = append(level, typ)
			}
		}
	}

	out := make([]string, 0, len(methods))
	for name := range methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

const destructorName = "Close"

// receiverName strips pointers and type parameters from a receiver or
// embedded field type.
func receiverName(expr ast.Expr) string {
	if id, ok := unwrapType(expr).(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func unwrapType(expr ast.Expr) ast.Expr {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		default:
			return expr
		}
	}
}

// parsedPackage holds every file of one directory that parsed cleanly, and
// the parse error of every file that did not.
type parsedPackage struct {
	files  map[string]*ast.File
	errors map[string]error
}

// methodsOf returns the names of the methods declared on typ. For an
// interface type it returns the interface's method set, embedded interfaces
// of the same package included.
func (p *parsedPackage) methodsOf(typ string) []string {
	if ts := p.typeSpec(typ); ts != nil {
		if iface, ok := ts.Type.(*ast.InterfaceType); ok {
			return p.interfaceMethods(iface, map[string]bool{typ: true})
		}
	}

	var out []string
	for _, f := range p.files {
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
				continue
			}
			if receiverName(fn.Recv.List[0].Type) == typ {
				out = append(out, fn.Name.Name)
			}
		}
	}
	return out
}

func (p *parsedPackage) interfaceMethods(iface *ast.InterfaceType, seen map[string]bool) []string {
	var out []string
	for _, field := range iface.Methods.List {
		if len(field.Names) > 0 {
			for _, n := range field.Names {
				out = append(out, n.Name)
			}
			continue
		}
		name := receiverName(field.Type)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if ts := p.typeSpec(name); ts != nil {
			if inner, ok := ts.Type.(*ast.InterfaceType); ok {
				out = append(out, p.interfaceMethods(inner, seen)...)
			}
		}
	}
	return out
}

// fieldsOf returns the field names of struct type typ, embedded fields
// included, and the names of the embedded types declared in this package.
func (p *parsedPackage) fieldsOf(typ string) (names, embedded []string) {
	ts := p.typeSpec(typ)
	if ts == nil {
		return nil, nil
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return nil, nil
	}
	for _, field := range st.Fields.List {
		if len(field.Names) > 0 {
			for _, n := range field.Names {
				names = append(names, n.Name)
			}
			continue
		}
		if sel, ok := unwrapType(field.Type).(*ast.SelectorExpr); ok {
			names = append(names, sel.Sel.Name)
			continue
		}
		if name := receiverName(field.Type); name != "" {
			names = append(names, name)
			embedded = append(embedded, name)
		}
	}
	return names, embedded
}

// typeSpec finds the declaration of the named type, or nil.
func (p *parsedPackage) typeSpec(name string) *ast.TypeSpec {
	for _, f := range p.files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, s := range gd.Specs {
				if ts := s.(*ast.TypeSpec); ts.Name.Name == name && !ts.Assign.IsValid() {
					return ts
				}
			}
		}
	}
	return nil
}

// Loader confirms candidates and turns them into Class handles. Parsed
// directories are cached until Reset.
type Loader struct {
	fset  *token.FileSet
	cache *gocache.Cache
}

// NewLoader creates a loader with an empty cache.
func NewLoader() *Loader {
	return &Loader{
		fset:  token.NewFileSet(),
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Reset drops every cached package so the next load reads from disk.
func (l *Loader) Reset() {
	l.cache.Flush()
	l.fset = token.NewFileSet()
}

// Load confirms that the candidate file declares the type its name implies.
// Every failure wraps ErrUnloadable.
func (l *Loader) Load(c Candidate) (*Class, error) {
	pkg, err := l.parseDir(filepath.Dir(c.File))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnloadable, c.File, err)
	}
	if perr, ok := pkg.errors[c.File]; ok {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnloadable, c.File, perr)
	}
	f, ok := pkg.files[c.File]
	if !ok {
		return nil, fmt.Errorf("%w: %s: not part of package", ErrUnloadable, c.File)
	}

	ts, doc := findType(f, c.Stem)
	if ts == nil {
		return nil, fmt.Errorf("%w: %s: no type matching %q", ErrUnloadable, c.File, c.Stem)
	}

	return &Class{
		Name:     c.Package + "." + ts.Name.Name,
		TypeName: ts.Name.Name,
		File:     c.File,
		Doc:      doc,
		fset:     l.fset,
		pkg:      pkg,
	}, nil
}

func (l *Loader) parseDir(dir string) (*parsedPackage, error) {
	if cached, ok := l.cache.Get(dir); ok {
		return cached.(*parsedPackage), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	pkg := &parsedPackage{
		files:  make(map[string]*ast.File),
		errors: make(map[string]error),
	}
	for _, e := range entries {
		if e.IsDir() || !isSourceFile(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		f, err := parser.ParseFile(l.fset, p, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			pkg.errors[p] = err
			continue
		}
		pkg.files[p] = f
	}

	l.cache.Set(dir, pkg, gocache.NoExpiration)
	return pkg, nil
}

// findType returns the concrete type declared in f whose name matches stem,
// ignoring case and underscores, together with its doc comment. Interfaces
// and aliases never match.
func findType(f *ast.File, stem string) (*ast.TypeSpec, *ast.CommentGroup) {
	want := normalizeName(stem)
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			ts := s.(*ast.TypeSpec)
			if ts.Assign.IsValid() || normalizeName(ts.Name.Name) != want {
				continue
			}
			if _, isIface := ts.Type.(*ast.InterfaceType); isIface {
				continue
			}
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			return ts, doc
		}
	}
	return nil, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}
