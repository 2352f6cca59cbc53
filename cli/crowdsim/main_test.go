package main

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestMainWithArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	test.That(t, mainWithArgs([]string{"crowdsim", "schema"}, &out, &errOut), test.ShouldEqual, 0)
	test.That(t, out.String(), test.ShouldContainSubstring, "tree_policy")

	out.Reset()
	errOut.Reset()
	test.That(t, mainWithArgs([]string{"crowdsim", "--config", "/does/not/exist.json", "schema"}, &out, &errOut),
		test.ShouldEqual, 1)
	test.That(t, errOut.String(), test.ShouldContainSubstring, "exist.json")
}
