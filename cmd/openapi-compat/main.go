// Command openapi-compat checks that a revised API description does not break
// clients written against a base one. When -revision is omitted the document
// compiled into resort/docs is used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"resort/docs"

	"gopkg.in/yaml.v3"
)

var methods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"patch": true, "head": true, "options": true,
}

var pathParam = regexp.MustCompile(`\{[^}]+\}`)

type endpoint struct {
	Codes    map[string]bool
	Required map[string]bool // "in:name" of required non-path parameters
	Secured  bool
}

// apiDoc maps a normalized path to its operations keyed by lower-case method.
type apiDoc map[string]map[string]endpoint

func main() {
	basePath := flag.String("base", "", "base swagger.yaml or swagger.json")
	revisionPath := flag.String("revision", "", "revision document (defaults to the compiled-in docs)")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load base: %v\n", err)
		os.Exit(1)
	}

	var revision apiDoc
	if *revisionPath == "" {
		revision, err = parse([]byte(docs.SwaggerInfo.ReadDoc()))
	} else {
		revision, err = loadFile(*revisionPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load revision: %v\n", err)
		os.Exit(1)
	}

	if issues := compare(base, revision); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "breaking changes found:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  %s\n", issue)
		}
		os.Exit(1)
	}
	fmt.Println("api is backward compatible")
}

func loadFile(path string) (apiDoc, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

// parse accepts YAML or JSON, JSON being a subset of YAML.
func parse(raw []byte) (apiDoc, error) {
	var root struct {
		Paths    map[string]map[string]yaml.Node `yaml:"paths"`
		Security []map[string][]string          `yaml:"security"`
	}
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if root.Paths == nil {
		return nil, errors.New("document has no paths")
	}

	out := apiDoc{}
	for path, ops := range root.Paths {
		key := normalizePath(path)
		for method, node := range ops {
			method = strings.ToLower(strings.TrimSpace(method))
			if !methods[method] {
				continue
			}
			var op struct {
				Responses  map[string]yaml.Node `yaml:"responses"`
				Security   *[]map[string][]string `yaml:"security"`
				Parameters []struct {
					Name     string `yaml:"name"`
					In       string `yaml:"in"`
					Required bool   `yaml:"required"`
				} `yaml:"parameters"`
			}
			if err := node.Decode(&op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}

			ep := endpoint{Codes: map[string]bool{}, Required: map[string]bool{}}
			for code := range op.Responses {
				ep.Codes[strings.ToLower(strings.TrimSpace(code))] = true
			}
			for _, p := range op.Parameters {
				if p.Required && p.In != "path" {
					ep.Required[p.In+":"+p.Name] = true
				}
			}
			if op.Security != nil {
				ep.Secured = len(*op.Security) > 0
			} else {
				ep.Secured = len(root.Security) > 0
			}

			if out[key] == nil {
				out[key] = map[string]endpoint{}
			}
			out[key][method] = ep
		}
	}
	return out, nil
}

// normalizePath erases parameter names so renaming {id} to {listingId} is not
// reported.
func normalizePath(p string) string {
	return pathParam.ReplaceAllString(strings.TrimRight(p, "/"), "{}")
}

func compare(base, revision apiDoc) []string {
	var issues []string
	for path, baseOps := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, "path removed: "+path)
			continue
		}
		for method, was := range baseOps {
			op := strings.ToUpper(method) + " " + path
			now, ok := revOps[method]
			if !ok {
				issues = append(issues, "operation removed: "+op)
				continue
			}
			for code := range was.Codes {
				if !now.Codes[code] {
					issues = append(issues, fmt.Sprintf("response removed: %s -> %s", op, code))
				}
			}
			for param := range now.Required {
				if !was.Required[param] {
					issues = append(issues, fmt.Sprintf("new required parameter: %s (%s)", op, param))
				}
			}
			if now.Secured && !was.Secured {
				issues = append(issues, "now requires auth: "+op)
			}
		}
	}
	sort.Strings(issues)
	return issues
}
