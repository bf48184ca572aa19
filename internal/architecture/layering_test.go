package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePrefix = "github.com/bruhnn/BD2ModPreview-sub001/internal/"

// importRule reports a reason when a file in (module, layer) may not import target.
type importRule func(module, layer, target string) string

func TestHexagonalLayerImports(t *testing.T) {
	t.Parallel()
	walkImports(t, filepath.Join("..", "modules"), func(path, target string) string {
		module, layer := moduleName(path), detectLayer(path)
		if module == "" || layer == "" || !strings.HasPrefix(target, modulePrefix+"modules/") {
			return ""
		}
		for _, rule := range []importRule{crossModuleRule, layerRule} {
			if reason := rule(module, layer, target); reason != "" {
				return reason
			}
		}
		return ""
	})
}

func TestPlatformDoesNotImportModulesOrUI(t *testing.T) {
	t.Parallel()
	walkImports(t, filepath.Join("..", "platform"), func(_, target string) string {
		if strings.HasPrefix(target, modulePrefix+"modules/") || strings.HasPrefix(target, modulePrefix+"ui/") {
			return "platform packages stay below the modules"
		}
		return ""
	})
}

func TestUIOnlySeesDTOs(t *testing.T) {
	t.Parallel()
	walkImports(t, filepath.Join("..", "ui"), func(_, target string) string {
		if strings.HasPrefix(target, modulePrefix+"modules/") && !isDTO(target) {
			return "ui talks to modules through dto types and its own ports"
		}
		return ""
	})
}

func walkImports(t *testing.T, root string, check func(path, target string) string) {
	t.Helper()
	fset := token.NewFileSet()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if parseErr != nil {
			return parseErr
		}
		slash := filepath.ToSlash(path)
		for _, imp := range node.Imports {
			target := strings.Trim(imp.Path.Value, `"`)
			if reason := check(slash, target); reason != "" {
				t.Errorf("forbidden import in %s: %s (%s)", slash, target, reason)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
}

func moduleName(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "modules" {
			return parts[i+1]
		}
	}
	return ""
}

func detectLayer(path string) string {
	for _, layer := range []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"} {
		if strings.Contains(path, "/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func isPortIn(path string) bool {
	return strings.Contains(path, "/port/in/") || strings.HasSuffix(path, "/port/in")
}

func isDTO(path string) bool {
	return strings.Contains(path, "/dto/") || strings.HasSuffix(path, "/dto")
}

func crossModuleRule(module, layer, target string) string {
	if strings.HasPrefix(target, modulePrefix+"modules/"+module+"/") {
		return ""
	}
	switch {
	case layer == "domain":
		return "domain never depends on another module"
	case isPortIn(target) || isDTO(target):
		return ""
	default:
		return "other modules are reachable only through port/in and dto"
	}
}

func layerRule(_, layer, target string) string {
	has := func(part string) bool { return strings.Contains(target, "/"+part+"/") || strings.HasSuffix(target, "/"+part) }
	switch layer {
	case "adapter/in":
		if !isPortIn(target) && !isDTO(target) {
			return "inbound adapters call port/in only"
		}
	case "usecase":
		if has("adapter") {
			return "usecases never see adapters"
		}
	case "service":
		if has("adapter") || has("usecase") {
			return "services sit below usecases and adapters"
		}
	case "domain":
		if has("adapter") || has("usecase") || has("service") || has("port") || has("dto") {
			return "domain imports nothing but itself"
		}
	case "dto", "port/in":
		if has("adapter") || has("service") || has("usecase") {
			return "contracts never import implementations"
		}
	}
	return ""
}
