package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// ghadapter runs a command and appends its JSON output to $GITHUB_OUTPUT as
// key=value lines. Nested objects are flattened with "_" separated keys, so
// a contexts run exposes e.g. comparisons_home.png_firefox_has_differences.
// The command's exit status is passed through.
func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}

	cmd := exec.Command(os.Args[1], os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			os.Exit(1)
		}
		code = exitErr.ExitCode()
	}

	_, _ = os.Stdout.Write(output)

	var result map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		os.Exit(code)
	}

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			os.Exit(1)
		}
		writeOutputs(f, result)
		_ = f.Close()
	}

	os.Exit(code)
}

func writeOutputs(w io.Writer, result map[string]any) {
	flat := map[string]string{}
	flatten(flat, "", result)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s=%s\n", k, flat[k])
	}
}

func flatten(dst map[string]string, prefix string, v any) {
	switch v := v.(type) {
	case map[string]any:
		for k, child := range v {
			if prefix != "" {
				k = prefix + "_" + k
			}
			flatten(dst, k, child)
		}
	case []any:
		encoded, _ := json.Marshal(v)
		dst[prefix] = string(encoded)
	case nil:
		dst[prefix] = "null"
	default:
		dst[prefix] = strings.ReplaceAll(fmt.Sprint(v), "\n", " ")
	}
}
