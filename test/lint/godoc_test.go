// Package lint holds repository-wide source checks.
package lint

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoRoot = "../.."

// Generated mocks are left as mockery writes them.
var skipDirs = map[string]bool{
	"internal/mocks": true,
}

// TestExportedDeclarationsHaveDocs fails for every exported function, method
// on an exported type, or type without a doc comment.
func TestExportedDeclarationsHaveDocs(t *testing.T) {
	var missing []string

	for _, dir := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(repoRoot, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			rel, _ := filepath.Rel(repoRoot, path)
			if d.IsDir() {
				if skipDirs[filepath.ToSlash(rel)] {
					return filepath.SkipDir
				}

				return nil
			}

			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}

			found, parseErr := undocumented(path)
			if parseErr != nil {
				return parseErr
			}

			for _, name := range found {
				missing = append(missing, filepath.ToSlash(rel)+": "+name)
			}

			return nil
		})
		require.NoError(t, err)
	}

	assert.Empty(t, missing, "exported declarations without doc comments")
}

func undocumented(path string) ([]string, error) {
	file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var out []string

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !d.Name.IsExported() || d.Doc != nil {
				continue
			}

			if d.Recv != nil {
				recv := receiverName(d.Recv.List[0].Type)
				if !ast.IsExported(recv) {
					continue
				}

				out = append(out, recv+"."+d.Name.Name)

				continue
			}

			out = append(out, d.Name.Name)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}

			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok || !ts.Name.IsExported() || ts.Doc != nil || d.Doc != nil {
					continue
				}

				out = append(out, ts.Name.Name)
			}
		}
	}

	return out, nil
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.Ident:
		return e.Name
	default:
		return ""
	}
}

func TestUndocumented_ReportsMissingDocs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(`package sample

// Documented is fine.
func Documented() {}

func Bare() {}

type Thing struct{}

func (Thing) Method() {}

type hidden struct{}

func (hidden) Method() {}
`), 0o600))

	found, err := undocumented(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Bare", "Thing", "Thing.Method"}, found)
}
