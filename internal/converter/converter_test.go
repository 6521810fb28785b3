package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/meshbuilder/internal/config"
	"github.com/Faultbox/meshbuilder/internal/model"
	"github.com/Faultbox/meshbuilder/pkg/formats"
)

const attribs = `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
`

const (
	quadOBJ     = attribs + "f 1/1/1 2/2/1 3/3/1\nf 1/1/1 3/3/1 4/4/1\n"
	triangleOBJ = attribs + "g tri\nf 1/1/1 2/2/1 3/3/1\n"
	polygonOBJ  = attribs + "f 1/1/1 2/2/1 3/3/1 4/4/1\n"
	outOfRange  = attribs + "f 99/1/1 2/2/1 3/3/1\n"
)

func writeSources(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func testConfig(inputDir string) *config.Config {
	cfg := config.Default()
	cfg.Input.Dir = inputDir
	return cfg
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name string
		src  string
		out  config.OutputConfig
		want string
	}{
		{"next to source", "models/tree.obj", config.OutputConfig{Extension: ".aobj"}, filepath.Join("models", "tree.aobj")},
		{"output dir", "models/tree.obj", config.OutputConfig{Dir: "build", Extension: ".aobj"}, filepath.Join("build", "tree.aobj")},
		{"upper-case extension", "models/Rock.OBJ", config.OutputConfig{Extension: ".aobj"}, filepath.Join("models", "Rock.aobj")},
		{"dots in base name", "lod.0.obj", config.OutputConfig{Extension: ".mesh"}, "lod.0.mesh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPath(tt.src, tt.out); got != tt.want {
				t.Errorf("OutputPath(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestOutputPathDistinctPerSource(t *testing.T) {
	out := config.OutputConfig{Dir: "build", Extension: ".aobj"}
	a := OutputPath("models/tree.obj", out)
	b := OutputPath("models/rock.obj", out)
	if a == b {
		t.Errorf("two sources share output %s", a)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir, map[string]string{
		"b.obj":     quadOBJ,
		"a.OBJ":     quadOBJ,
		"notes.txt": "not a mesh",
		"c.obj.bak": quadOBJ,
		"tree.aobj": "",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested.obj"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	writeSources(t, filepath.Join(dir, "sub"), map[string]string{"deep.obj": quadOBJ})

	sources, err := Discover(dir, ".obj")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{filepath.Join(dir, "a.OBJ"), filepath.Join(dir, "b.obj")}
	if len(sources) != len(want) {
		t.Fatalf("Discover() = %v, want %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("source %d = %s, want %s", i, sources[i], want[i])
		}
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), ".obj")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir, map[string]string{"quad.obj": quadOBJ})

	src := filepath.Join(dir, "quad.obj")
	dst := filepath.Join(dir, "quad.aobj")

	res, err := ConvertFile(src, dst)
	if err != nil {
		t.Fatalf("ConvertFile failed: %v", err)
	}
	if res.Faces != 2 || res.Vertices != 4 || res.Indices != 6 {
		t.Errorf("unexpected result %+v", res)
	}

	aobj, err := formats.ParseAOBJFile(dst)
	if err != nil {
		t.Fatalf("ParseAOBJFile failed: %v", err)
	}
	mesh := model.FromAOBJ(aobj)
	want := []uint32{0, 1, 2, 0, 2, 3}
	for i, idx := range want {
		if mesh.Indices[i] != idx {
			t.Errorf("index %d = %d, want %d", i, mesh.Indices[i], idx)
		}
	}
	if mesh.Bounds != res.Bounds {
		t.Errorf("decoded bounds %+v differ from %+v", mesh.Bounds, res.Bounds)
	}
}

func TestConvertFileRejectsWithoutOutput(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"polygon face", polygonOBJ, model.ErrUnsupportedFaceShape},
		{"index out of range", outOfRange, model.ErrAttributeIndexOutOfRange},
		{"malformed line", "v 1 2\n", formats.ErrMalformedLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSources(t, dir, map[string]string{"bad.obj": tt.source})
			src := filepath.Join(dir, "bad.obj")
			dst := filepath.Join(dir, "bad.aobj")

			_, err := ConvertFile(src, dst)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), src) {
				t.Errorf("error %q does not name the source", err)
			}
			if _, err := os.Stat(dst); !os.IsNotExist(err) {
				t.Errorf("expected no output for rejected mesh, stat err = %v", err)
			}
		})
	}
}

func TestConvertFileKeepsPreviousOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir, map[string]string{"mesh.obj": polygonOBJ})
	dst := filepath.Join(dir, "mesh.aobj")
	if err := os.WriteFile(dst, []byte("previous"), 0644); err != nil {
		t.Fatalf("failed to seed output: %v", err)
	}

	if _, err := ConvertFile(filepath.Join(dir, "mesh.obj"), dst); err == nil {
		t.Fatal("expected failure")
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "previous" {
		t.Errorf("existing output was modified: %q", data)
	}
}

func TestConvertFileRejectsSourceAsOutput(t *testing.T) {
	dir := t.TempDir()
	writeSources(t, dir, map[string]string{"quad.obj": quadOBJ})
	src := filepath.Join(dir, "quad.obj")

	for _, dst := range []string{src, filepath.Join(dir, ".", "sub", "..", "quad.obj")} {
		_, err := ConvertFile(src, dst)
		if !errors.Is(err, ErrOutputCollision) {
			t.Fatalf("ConvertFile(%s, %s): expected ErrOutputCollision, got %v", src, dst, err)
		}
	}

	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != quadOBJ {
		t.Errorf("source was modified: %q", data)
	}
}

func TestConvertFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := ConvertFile(filepath.Join(dir, "missing.obj"), filepath.Join(dir, "missing.aobj"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRun(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		t.Run(map[int]string{1: "sequential", 4: "parallel"}[jobs], func(t *testing.T) {
			inDir := t.TempDir()
			outDir := filepath.Join(t.TempDir(), "out")
			writeSources(t, inDir, map[string]string{
				"quad.obj":     quadOBJ,
				"triangle.obj": triangleOBJ,
				"polygon.obj":  polygonOBJ,
				"range.obj":    outOfRange,
			})

			cfg := testConfig(inDir)
			cfg.Output.Dir = outDir
			cfg.Build.Jobs = jobs

			summary, err := New(cfg, nil).Run(context.Background())
			if err == nil {
				t.Fatal("expected combined error for failing files")
			}
			if n := len(multierr.Errors(err)); n != 2 {
				t.Errorf("expected 2 combined errors, got %d: %v", n, err)
			}
			if !errors.Is(err, model.ErrUnsupportedFaceShape) || !errors.Is(err, model.ErrAttributeIndexOutOfRange) {
				t.Errorf("combined error lost a cause: %v", err)
			}

			if len(summary.Sources) != 4 {
				t.Errorf("expected 4 sources, got %d", len(summary.Sources))
			}
			if len(summary.Converted) != 2 {
				t.Fatalf("expected 2 converted, got %d", len(summary.Converted))
			}
			if filepath.Base(summary.Converted[0].Source) != "quad.obj" ||
				filepath.Base(summary.Converted[1].Source) != "triangle.obj" {
				t.Errorf("converted results not sorted: %s, %s",
					summary.Converted[0].Source, summary.Converted[1].Source)
			}
			if len(summary.Failed) != 2 {
				t.Errorf("expected 2 failed, got %v", summary.Failed)
			}

			for _, name := range []string{"quad.aobj", "triangle.aobj"} {
				if _, err := formats.ParseAOBJFile(filepath.Join(outDir, name)); err != nil {
					t.Errorf("%s: %v", name, err)
				}
			}
			for _, name := range []string{"polygon.aobj", "range.aobj"} {
				if _, err := os.Stat(filepath.Join(outDir, name)); !os.IsNotExist(err) {
					t.Errorf("%s should not exist, stat err = %v", name, err)
				}
			}
		})
	}
}

func TestRunOutputCollision(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		t.Run(map[int]string{1: "sequential", 4: "parallel"}[jobs], func(t *testing.T) {
			inDir := t.TempDir()
			writeSources(t, inDir, map[string]string{
				"tree.OBJ": quadOBJ,
				"tree.obj": triangleOBJ,
			})

			cfg := testConfig(inDir)
			cfg.Build.Jobs = jobs

			sources, err := Discover(inDir, cfg.Input.Extension)
			if err != nil {
				t.Fatalf("Discover failed: %v", err)
			}
			if len(sources) != 2 {
				t.Skip("file system folds case, names cannot collide")
			}

			summary, err := New(cfg, nil).Run(context.Background())
			if !errors.Is(err, ErrOutputCollision) {
				t.Fatalf("expected ErrOutputCollision, got %v", err)
			}
			if n := len(multierr.Errors(err)); n != 1 {
				t.Errorf("expected 1 combined error, got %d: %v", n, err)
			}

			if len(summary.Converted) != 1 || filepath.Base(summary.Converted[0].Source) != "tree.OBJ" {
				t.Fatalf("expected only tree.OBJ converted, got %+v", summary.Converted)
			}
			if len(summary.Failed) != 1 || filepath.Base(summary.Failed[0]) != "tree.obj" {
				t.Errorf("expected tree.obj to fail, got %v", summary.Failed)
			}

			aobj, err := formats.ParseAOBJFile(filepath.Join(inDir, "tree.aobj"))
			if err != nil {
				t.Fatalf("ParseAOBJFile failed: %v", err)
			}
			// Quad from tree.OBJ: two triangles
			if n := aobj.TriangleCount(); n != 2 {
				t.Errorf("expected container from tree.OBJ with 2 triangles, got %d", n)
			}
		})
	}
}

func TestRunNoSources(t *testing.T) {
	summary, err := New(testConfig(t.TempDir()), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(summary.Converted) != 0 || len(summary.Failed) != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRunCancelled(t *testing.T) {
	inDir := t.TempDir()
	writeSources(t, inDir, map[string]string{"quad.obj": quadOBJ})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(testConfig(inDir), nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(summary.Converted) != 0 {
		t.Errorf("expected nothing converted, got %d", len(summary.Converted))
	}
	if _, err := os.Stat(filepath.Join(inDir, "quad.aobj")); !os.IsNotExist(err) {
		t.Errorf("expected no output after cancellation, stat err = %v", err)
	}
}

func TestRunMissingInputDir(t *testing.T) {
	_, err := New(testConfig(filepath.Join(t.TempDir(), "missing")), nil).Run(context.Background())
	if err == nil {
		t.Error("expected error for missing input dir")
	}
}
