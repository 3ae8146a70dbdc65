// Package filetest runs golden-file tests: each source file of a directory
// produces an output that is compared with the content of a golden file
// next to it.
package filetest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
)

var testUpdateAllTests = flag.Bool("test.update-all-tests", false, "If set, sets all test.update-*-tests.")

// SourceFiles returns the list of source files in dir corresponding to the
// specified extension.
func SourceFiles(t *testing.T, dir, ext string) []os.FileInfo {
	t.Helper()

	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	res := make([]os.FileInfo, 0, len(dents))
	for _, dent := range dents {
		if !dent.Type().IsRegular() || (ext != "" && filepath.Ext(dent.Name()) != ext) {
			continue
		}
		fi, err := dent.Info()
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, fi)
	}
	return res
}

// Run calls fn as a subtest for each source file in dir with the extension,
// and compares the output it returns with the golden file named after the
// source file with the ".want" extension appended. If updateFlag is true, the
// golden files are updated instead.
func Run(t *testing.T, dir, ext string, updateFlag *bool, fn func(t *testing.T, path string) string) {
	t.Helper()

	fis := SourceFiles(t, dir, ext)
	if len(fis) == 0 {
		t.Fatalf("no %s file in %s", ext, dir)
	}
	for _, fi := range fis {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			out := fn(t, filepath.Join(dir, fi.Name()))
			DiffOutput(t, fi, out, dir, updateFlag)
		})
	}
}

// DiffOutput validates that output is the same as the expected result in the
// corresponding golden file. If updateFlag is true, it updates the golden file
// with output instead.
func DiffOutput(t *testing.T, fi os.FileInfo, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "output", ".want", output, resultDir, updateFlag)
}

// DiffCustom is the general version of DiffOutput, to check for any other
// kind of output file. Provide a label to use in the error logs (e.g.
// "output", "errors") and the file extension of the golden file (including
// the leading dot).
func DiffCustom(t *testing.T, fi os.FileInfo, label, ext, output, resultDir string, updateFlag *bool) {
	t.Helper()

	goldFile := filepath.Join(resultDir, fi.Name()+ext)
	if *updateFlag || *testUpdateAllTests {
		if err := os.WriteFile(goldFile, []byte(output), 0600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil {
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got %s:\n%s\n", label, output)
	}
	if patch := diff.Diff(want, output); patch != "" {
		t.Errorf("diff %s:\n%s\n", label, patch)
	}
}
