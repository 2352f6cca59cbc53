package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crowd.json")
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)
	return path
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"crowdsim"}, args...))
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	cfgPath := writeConfig(t, `{"objects": 16, "spacing": 5, "validate_tree": true}`)
	dir := t.TempDir()
	pngDir := filepath.Join(dir, "frames")
	plotPath := filepath.Join(dir, "steps.png")
	logPath := filepath.Join(dir, "crowdsim.log")

	out, _, err := runApp(t, "--config", cfgPath, "--quiet", "--log-file", logPath,
		"run", "--ticks", "4", "--dt", "0.1", "--png-dir", pngDir, "--png-every", "2",
		"--plot", plotPath, "--histogram", "--layers")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Mean (ms)")
	test.That(t, out, test.ShouldContainSubstring, "rebuild")
	test.That(t, out, test.ShouldContainSubstring, "Depth")

	for _, name := range []string{"frame-00002.png", "frame-00004.png"} {
		_, err := os.Stat(filepath.Join(pngDir, name))
		test.That(t, err, test.ShouldBeNil)
	}
	_, err = os.Stat(filepath.Join(pngDir, "frame-00003.png"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	_, err = os.Stat(plotPath)
	test.That(t, err, test.ShouldBeNil)

	logs, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "simulation ready")

	t.Run("bad snapshot interval", func(t *testing.T) {
		_, _, err := runApp(t, "--config", cfgPath, "--quiet", "run", "--ticks", "1", "--png-dir", pngDir, "--png-every", "0")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "png-every")
	})
}

func TestRenderCommand(t *testing.T) {
	cfgPath := writeConfig(t, `{"objects": 9}`)
	out := filepath.Join(t.TempDir(), "crowd.png")

	stdout, _, err := runApp(t, "--config", cfgPath, "render", "--ticks", "3", "--out", out,
		"--width", "300", "--height", "200", "--labels", "--thumbnail", "100")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stdout, test.ShouldContainSubstring, "at tick 3")
	_, err = os.Stat(out)
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(filepath.Join(filepath.Dir(out), "crowd-thumb.png"))
	test.That(t, err, test.ShouldBeNil)

	_, _, err = runApp(t, "--config", cfgPath, "render")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBenchCommand(t *testing.T) {
	cfgPath := writeConfig(t, `{"objects": 25, "spacing": 5}`)
	plotPath := filepath.Join(t.TempDir(), "bench.png")

	out, errOut, err := runApp(t, "--config", cfgPath, "--quiet", "bench", "--ticks", "20", "--dt", "0.25",
		"--plot", plotPath, "--histogram")
	test.That(t, err, test.ShouldBeNil)
	for _, v := range benchVariants {
		test.That(t, out, test.ShouldContainSubstring, v.name)
	}
	test.That(t, errOut, test.ShouldNotContainSubstring, "different crowd")
	_, err = os.Stat(plotPath)
	test.That(t, err, test.ShouldBeNil)
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"title": "crowdsim config"`)
}

func TestConfigErrors(t *testing.T) {
	_, _, err := runApp(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "schema")
	test.That(t, err, test.ShouldNotBeNil)

	cfgPath := writeConfig(t, `{"objects": -2}`)
	_, _, err = runApp(t, "--config", cfgPath, "run")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "objects")
}
