package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runMain(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = realMain(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestTypeInfoOnly(t *testing.T) {
	code, stdout, _ := runMain(t, "--type-info")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, section := range []string{"ForwardType", "BackwardType", "WeightType"} {
		if !strings.Contains(stdout, section) {
			t.Errorf("missing %s section:\n%s", section, stdout)
		}
	}
}

func TestHelp(t *testing.T) {
	code, stdout, _ := runMain(t, "--help")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "Usage: typecnn") {
		t.Errorf("missing usage text:\n%s", stdout)
	}
}

func TestArgumentErrorExitsNonzero(t *testing.T) {
	code, _, stderr := runMain(t, "--keep-best")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Error when parsing arguments") {
		t.Errorf("missing diagnostic:\n%s", stderr)
	}
}

func TestMissingNetworkFile(t *testing.T) {
	code, _, stderr := runMain(t, "-c", filepath.Join(t.TempDir(), "absent.json"), "-t", "data.bin")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Could not load network from given file.") {
		t.Errorf("missing diagnostic:\n%s", stderr)
	}
}

func TestTrainAndSaveEndToEnd(t *testing.T) {
	dir := t.TempDir()

	netPath := filepath.Join(dir, "net.json")
	desc := `{
  "input": {"width": 2, "height": 1, "depth": 1},
  "layers": [{"units": 3, "activation": "sigmoid"}]
}`
	if err := os.WriteFile(netPath, []byte(desc), 0o644); err != nil {
		t.Fatal(err)
	}

	// two fixed records: label byte then two pixel bytes
	binPath := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(binPath, []byte{0, 10, 200, 1, 200, 10}, 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runMain(t, "-c", netPath, "-t", binPath, "-e", "2", "-b", "1", "-s", "1")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr:\n%s", code, stderr)
	}

	saved, err := os.ReadFile(netPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(saved), `"weights"`) {
		t.Error("trained network file carries no weights")
	}
}

func TestValidationEndToEnd(t *testing.T) {
	dir := t.TempDir()

	netPath := filepath.Join(dir, "net.json")
	desc := `{
  "input": {"width": 2, "height": 1, "depth": 1},
  "layers": [{"units": 2, "activation": "identity"}]
}`
	if err := os.WriteFile(netPath, []byte(desc), 0o644); err != nil {
		t.Fatal(err)
	}

	binPath := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(binPath, []byte{0, 10, 200, 1, 200, 10}, 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runMain(t, "-c", netPath, "-v", binPath)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Validation accuracy:") {
		t.Errorf("missing validation summary:\n%s", stdout)
	}
}
