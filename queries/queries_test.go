package queries

import (
	"io/fs"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestQueryHelperMatchesEmbeddedFiles(t *testing.T) {
	// collect all query paths in QueryHelper
	var paths []string
	collectQueryPaths(reflect.ValueOf(QueryHelper), &paths)

	if len(paths) == 0 {
		t.Fatal("no query paths in QueryHelper found")
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			if content := strings.TrimSpace(Get(path)); content == "" {
				t.Errorf("query file %q is empty", path)
			}
		})
	}

	// every embedded .sql file needs an entry in QueryHelper, 1:1
	var embedded []string
	err := fs.WalkDir(Files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			embedded = append(embedded, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("error walking embedded queries: %v", err)
	}

	for _, path := range embedded {
		if !slices.Contains(paths, path) {
			t.Errorf("embedded query %s is not referenced by QueryHelper", path)
		}
	}

	if len(embedded) != len(paths) {
		t.Fatalf("number of embedded .sql files does not match number of query paths in QueryHelper (%d != %d)", len(embedded), len(paths))
	}
}

func TestGetPanicsOnUnknownQuery(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Get to panic for a missing file")
		}
	}()
	Get("select/does_not_exist.sql")
}

// collectQueryPaths recursively walks v (a struct) and appends every string field value to paths.
func collectQueryPaths(v reflect.Value, paths *[]string) {
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)

		if field.Kind() == reflect.String {
			if s := field.String(); s != "" {
				*paths = append(*paths, s)
			}
		} else {
			collectQueryPaths(field, paths)
		}
	}
}
